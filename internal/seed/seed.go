package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type productSeed struct {
	Name        string
	Description string
	Price       string
	Category    string
	Image       string
	Stock       int
}

// Menu is the demo catalog loaded by Apply.
var Menu = []productSeed{
	{Name: "Espresso", Description: "A concentrated shot of our house blend", Price: "2.50", Category: "Espresso", Image: "/images/espresso.jpg", Stock: 100},
	{Name: "Americano", Description: "Espresso lengthened with hot water", Price: "3.00", Category: "Americano", Image: "/images/americano.jpg", Stock: 100},
	{Name: "Caffe Latte", Description: "Espresso with steamed milk and a thin layer of foam", Price: "3.50", Category: "Latte", Image: "/images/latte.jpg", Stock: 100},
	{Name: "Cappuccino", Description: "Equal parts espresso, steamed milk and foam", Price: "3.75", Category: "Cappuccino", Image: "/images/cappuccino.jpg", Stock: 100},
	{Name: "Mocha", Description: "Espresso, chocolate and steamed milk", Price: "4.25", Category: "Mocha", Image: "/images/mocha.jpg", Stock: 80},
	{Name: "Green Tea", Description: "Loose leaf sencha", Price: "2.75", Category: "Tea", Image: "/images/green-tea.jpg", Stock: 60},
	{Name: "Butter Croissant", Description: "Baked fresh every morning", Price: "4.00", Category: "Pastry", Image: "/images/croissant.jpg", Stock: 40},
	{Name: "Ham & Cheese Sandwich", Description: "On sourdough", Price: "6.50", Category: "Sandwich", Image: "/images/sandwich.jpg", Stock: 25},
	{Name: "Tiramisu", Description: "Espresso-soaked ladyfingers and mascarpone", Price: "5.25", Category: "Dessert", Image: "/images/tiramisu.jpg", Stock: 20},
}

// AdminEnsurer creates or promotes the administrator account.
// ProductUpserter stores menu items by name.
type ProductUpserter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type AdminEnsurer interface {
	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

type Admin struct {
	Name     string
	Email    string
	Password string
}

// Apply loads the demo menu and, when a password is given, the admin
// account. It is idempotent: products are upserted by name.
func Apply(ctx context.Context, products ProductUpserter, admins AdminEnsurer, admin Admin, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)
	for _, p := range Menu {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return fmt.Errorf("price for %s: %w", p.Name, err)
		}
		if _, err := products.Upsert(ctx, domain.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Category:    p.Category,
			Image:       p.Image,
			Stock:       p.Stock,
		}); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
	}
	logger.Info("menu seeded", "products", len(Menu))

	if admin.Password == "" {
		logger.Warn("admin not seeded", "reason", "ADMIN_PASSWORD not set")
		return nil
	}
	u, err := admins.EnsureAdmin(ctx, admin.Name, admin.Email, admin.Password)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	logger.Info("admin seeded", "user_id", u.ID, "email", u.Email)
	return nil
}
