package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/logging"
	"storefront/internal/shopclient"
)

func main() {
	var (
		apiURL   string
		email    string
		password string
		items    string
		category string
		address  string
		city     string
		zip      string
		payment  string
	)
	flag.StringVar(&apiURL, "api", "http://localhost:8080", "Storefront API base URL")
	flag.StringVar(&email, "email", "", "Account email")
	flag.StringVar(&password, "password", "", "Account password")
	flag.StringVar(&items, "items", "", "Comma separated productID:qty pairs to order")
	flag.StringVar(&category, "category", "", "List the menu for this category and exit")
	flag.StringVar(&address, "address", "", "Shipping street address")
	flag.StringVar(&city, "city", "", "Shipping city")
	flag.StringVar(&zip, "zip", "", "Shipping zip code")
	flag.StringVar(&payment, "payment", shopclient.DefaultPaymentMethod, "Payment method (creditCard or paypal)")
	flag.Parse()

	cfg := config.FromEnv()
	logger := logging.New(cfg.LogLevel).With("app", "shopper")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := shopclient.New(apiURL, nil)

	if items == "" {
		products, err := client.Products(ctx, category)
		if err != nil {
			logger.Error("list products", "error", err)
			os.Exit(1)
		}
		printJSON(products)
		return
	}

	if email == "" || password == "" {
		flag.Usage()
		os.Exit(2)
	}
	wanted, err := parseItems(items)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	session := shopclient.NewSession(client, logger)
	defer session.Close()

	if _, err := session.Login(ctx, email, password); err != nil {
		logger.Error("login", "error", err)
		os.Exit(1)
	}
	for _, it := range wanted {
		if err := session.AddItem(ctx, it.productID, it.qty); err != nil {
			logger.Error("add item", "product_id", it.productID, "error", err)
			os.Exit(1)
		}
	}

	order, err := session.Checkout(ctx, shopclient.CheckoutInput{
		ShippingAddress: domain.ShippingAddress{Address: address, City: city, Zip: zip},
		PaymentMethod:   payment,
	})
	if err != nil {
		logger.Error("checkout", "error", err)
		os.Exit(1)
	}
	printJSON(order)
}

type item struct {
	productID string
	qty       int
}

func parseItems(s string) ([]item, error) {
	var out []item
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, qtyStr, found := strings.Cut(part, ":")
		qty := 1
		if found {
			n, err := strconv.Atoi(qtyStr)
			if err != nil {
				return nil, fmt.Errorf("invalid quantity in %q", part)
			}
			qty = n
		}
		out = append(out, item{productID: strings.TrimSpace(id), qty: qty})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no items given")
	}
	return out, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
