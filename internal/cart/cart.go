// Package cart holds the per-user shopping cart and the rules that keep its
// denormalized line items and aggregate totals consistent.
//
// A Cart never reads the catalog by itself: callers pass the product snapshot
// taken at call time, and the cart copies title, price and image into the
// line item when the product is first added. Later catalog price changes do
// not touch existing line items.
package cart

import (
	"fmt"
	"math"
	"slices"

	apperrors "github.com/abgdnv/cartwish/internal/errors"
	"github.com/google/uuid"
)

// LineItem is one product in a cart.
type LineItem struct {
	ProductID  uuid.UUID `json:"productId"`
	Title      string    `json:"title"`
	Price      int64     `json:"price"`
	Image      string    `json:"image"`
	Quantity   int32     `json:"quantity"`
	TotalPrice int64     `json:"totalPrice"`
}

// Cart is the user's cart. TotalProducts and TotalCartPrice are derived from Products.
// Version is zero until the cart is first persisted.
type Cart struct {
	UserID         uuid.UUID  `json:"userId"`
	Products       []LineItem `json:"products"`
	TotalProducts  int32      `json:"totalProducts"`
	TotalCartPrice int64      `json:"totalCartPrice"`
	Version        int32      `json:"version"`
}

// Product is the catalog data a cart mutation needs.
type Product struct {
	ID    uuid.UUID
	Title string
	Price int64
	Stock int32
	Image string
}

// New returns an empty, not yet persisted cart for the user.
func New(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Products: []LineItem{}}
}

// IsNew reports whether the cart has never been saved.
func (c *Cart) IsNew() bool {
	return c.Version == 0
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	return slices.IndexFunc(c.Products, func(li LineItem) bool { return li.ProductID == productID })
}

// Item returns the line item for productID.
func (c *Cart) Item(productID uuid.UUID) (LineItem, bool) {
	i := c.indexOf(productID)
	if i < 0 {
		return LineItem{}, false
	}
	return c.Products[i], true
}

// Add puts quantity units of p into the cart.
//
// The requested quantity alone must fit in stock. When the product is already
// in the cart the combined quantity must stay strictly below stock, so the add
// path never fills a line up to the exact stock level; Increase can.
func (c *Cart) Add(p Product, quantity int32) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1, got %d: %w", quantity, apperrors.ErrValidation)
	}
	if p.Stock < quantity {
		return insufficientStock(p.ID, p.Stock, int64(quantity))
	}
	i := c.indexOf(p.ID)
	if i >= 0 {
		if requested := int64(c.Products[i].Quantity) + int64(quantity); requested >= int64(p.Stock) {
			return insufficientStock(p.ID, p.Stock, requested)
		}
	}
	if err := c.checkCapacity(int64(quantity)); err != nil {
		return err
	}

	if i >= 0 {
		li := &c.Products[i]
		li.Quantity += quantity
		li.TotalPrice = li.Price * int64(li.Quantity)
	} else {
		c.Products = append(c.Products, LineItem{
			ProductID:  p.ID,
			Title:      p.Title,
			Price:      p.Price,
			Image:      p.Image,
			Quantity:   quantity,
			TotalPrice: p.Price * int64(quantity),
		})
	}
	c.Recompute()
	return nil
}

// Increase adds one unit of productID. stock is the product's current stock.
func (c *Cart) Increase(productID uuid.UUID, stock int32) error {
	i := c.indexOf(productID)
	if i < 0 {
		return apperrors.ErrCartItemNotFound
	}
	li := &c.Products[i]
	if li.Quantity >= stock {
		return insufficientStock(productID, stock, int64(li.Quantity)+1)
	}
	if err := c.checkCapacity(1); err != nil {
		return err
	}
	li.Quantity++
	li.TotalPrice += li.Price
	c.TotalProducts++
	c.TotalCartPrice += li.Price
	return nil
}

// Decrease removes one unit of productID. The line item is dropped when its
// last unit is removed, in which case removed is true.
func (c *Cart) Decrease(productID uuid.UUID) (removed bool, err error) {
	i := c.indexOf(productID)
	if i < 0 {
		return false, apperrors.ErrCartItemNotFound
	}
	li := c.Products[i]
	if li.Quantity > 1 {
		c.Products[i].Quantity--
		c.Products[i].TotalPrice -= li.Price
		c.TotalProducts--
		c.TotalCartPrice -= li.Price
		return false, nil
	}
	c.Products = slices.Delete(c.Products, i, i+1)
	c.TotalProducts -= li.Quantity
	c.TotalCartPrice -= li.TotalPrice
	return true, nil
}

// Recompute derives the cart totals from its line items.
func (c *Cart) Recompute() {
	var products int32
	var price int64
	for _, li := range c.Products {
		products += li.Quantity
		price += li.TotalPrice
	}
	c.TotalProducts = products
	c.TotalCartPrice = price
}

// checkCapacity rejects a mutation that would push TotalProducts past the int32 range.
func (c *Cart) checkCapacity(extra int64) error {
	if int64(c.TotalProducts)+extra > math.MaxInt32 {
		return fmt.Errorf("cart cannot hold more than %d products: %w", math.MaxInt32, apperrors.ErrValidation)
	}
	return nil
}

// Clone returns a deep copy, so a failed save never leaks a half-applied mutation.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Products = slices.Clone(c.Products)
	if cp.Products == nil {
		cp.Products = []LineItem{}
	}
	return &cp
}

func insufficientStock(productID uuid.UUID, available int32, requested int64) error {
	return fmt.Errorf("product %s. Available: %d, Requested: %d: %w", productID, available, requested, apperrors.ErrInsufficientStock)
}
