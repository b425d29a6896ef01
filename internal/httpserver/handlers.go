package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	messagesvc "storefront/internal/service/message"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	usersvc "storefront/internal/service/user"
)

type handlers struct {
	orders   OrderService
	users    UserService
	products ProductService
	messages MessageService
	metrics  *metrics.Metrics
}

type authResponse struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token"`
}

func toAuthResponse(s *usersvc.Session) authResponse {
	return authResponse{
		ID:    s.User.ID,
		Name:  s.User.Name,
		Email: s.User.Email,
		Role:  s.User.Role,
		Token: s.Token,
	}
}

func (h *handlers) signup(c *gin.Context) {
	var req usersvc.SignupInput
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.users.Signup(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAuthResponse(session))
}

func (h *handlers) login(c *gin.Context) {
	var req usersvc.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResponse(session))
}

func (h *handlers) forgotPassword(c *gin.Context) {
	var req usersvc.ForgotPasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.ForgotPassword(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent to your email"})
}

func (h *handlers) resetPassword(c *gin.Context) {
	var req usersvc.ResetPasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var req productsvc.Input
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) updateProduct(c *gin.Context) {
	var req productsvc.Input
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), callerFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

func (h *handlers) createOrder(c *gin.Context) {
	var req ordersvc.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.orders.Create(c.Request.Context(), callerFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.metrics.OrderCreated()
	c.JSON(http.StatusCreated, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.orders.ListAll(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) myOrders(c *gin.Context) {
	orders, err := h.orders.ListMine(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) updateOrder(c *gin.Context) {
	var req ordersvc.UpdateStatusInput
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.orders.UpdateStatus(c.Request.Context(), callerFrom(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	h.metrics.OrderStatusChanged(o.Status)
	c.JSON(http.StatusOK, o)
}

func (h *handlers) deleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order removed"})
}

func (h *handlers) createMessage(c *gin.Context) {
	var req messagesvc.SubmitInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.messages.Submit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *handlers) listMessages(c *gin.Context) {
	msgs, err := h.messages.ListAll(c.Request.Context(), callerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *handlers) deleteMessage(c *gin.Context) {
	if err := h.messages.Delete(c.Request.Context(), callerFrom(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message removed"})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// processPayment is a mock gateway: every positive amount succeeds.
func (h *handlers) processPayment(c *gin.Context) {
	var req paymentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "amount must be positive"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment processed successfully",
		"amount":  req.Amount,
	})
}
