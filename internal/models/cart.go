package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID           string          `json:"id"`
	TotalOrder   decimal.Decimal `json:"totalOrder"`
	ActiveStatus bool            `json:"activeStatus"`
	CartItemIDs  ItemRefs        `json:"cartItemId"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

type CartItem struct {
	ID           string          `json:"id"`
	ProductQtd   int             `json:"productQtd"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	ActiveStatus bool            `json:"activeStatus"`
	ProductID    ProductRef      `json:"productId"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// CartWithItems is a cart joined with its line item records.
type CartWithItems struct {
	Cart
	Items []CartItem `json:"items"`
}

// ItemRefs decodes the cart's item references, which backends send either
// as plain ids or as embedded item objects. It always encodes as ids.
type ItemRefs []string

func (r *ItemRefs) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*r = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("models: cartItemId: %w", err)
	}
	out := make(ItemRefs, 0, len(raw))
	for _, m := range raw {
		var id string
		if err := json.Unmarshal(m, &id); err == nil {
			out = append(out, id)
			continue
		}
		var obj struct {
			ID    string `json:"id"`
			ObjID string `json:"_id"`
		}
		if err := json.Unmarshal(m, &obj); err != nil {
			return fmt.Errorf("models: cartItemId entry: %w", err)
		}
		if obj.ID == "" {
			obj.ID = obj.ObjID
		}
		if obj.ID != "" {
			out = append(out, obj.ID)
		}
	}
	*r = out
	return nil
}

// ProductRef is a cart item's product: an id, optionally with the embedded
// product when the backend populates it. It encodes as the bare id.
type ProductRef struct {
	ID      string
	Product *Product
}

func RefTo(productID string) ProductRef { return ProductRef{ID: productID} }

func (p ProductRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ID)
}

func (p *ProductRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		*p = ProductRef{ID: id}
		return nil
	}
	var prod Product
	if err := json.Unmarshal(b, &prod); err != nil {
		return fmt.Errorf("models: productId: %w", err)
	}
	*p = ProductRef{ID: prod.ID, Product: &prod}
	return nil
}

// ActiveItems returns the items with activeStatus set.
func (c *CartWithItems) ActiveItems() []CartItem {
	out := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ActiveStatus {
			out = append(out, it)
		}
	}
	return out
}

// ItemCount is the sum of quantities over active items.
func (c *CartWithItems) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		if it.ActiveStatus {
			n += it.ProductQtd
		}
	}
	return n
}

// TotalAmount is the cart total as last recomputed.
func (c *CartWithItems) TotalAmount() decimal.Decimal {
	return c.TotalOrder
}

// SumActive recomputes the total from active items only.
func (c *CartWithItems) SumActive() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		if it.ActiveStatus {
			total = total.Add(it.TotalAmount)
		}
	}
	return total
}

// Recompute resets TotalOrder and the item references from Items.
func (c *CartWithItems) Recompute() {
	c.TotalOrder = c.SumActive()
	refs := make(ItemRefs, 0, len(c.Items))
	for _, it := range c.Items {
		refs = append(refs, it.ID)
	}
	c.CartItemIDs = refs
}

// Consistent reports whether TotalOrder matches the active items.
func (c *CartWithItems) Consistent() bool {
	return c.TotalOrder.Equal(c.SumActive())
}

// FindItem returns the index of the item with the given id.
func (c *CartWithItems) FindItem(itemID string) (int, bool) {
	for i, it := range c.Items {
		if it.ID == itemID {
			return i, true
		}
	}
	return -1, false
}

// FindProduct returns the index of the active line item for productID.
func (c *CartWithItems) FindProduct(productID string) (int, bool) {
	for i, it := range c.Items {
		if it.ActiveStatus && it.ProductID.ID == productID {
			return i, true
		}
	}
	return -1, false
}

// Clone deep-copies the cart so snapshots survive later mutation.
func (c *CartWithItems) Clone() *CartWithItems {
	if c == nil {
		return nil
	}
	out := *c
	out.CartItemIDs = append(ItemRefs(nil), c.CartItemIDs...)
	out.Items = make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		out.Items[i] = it
		if it.ProductID.Product != nil {
			p := *it.ProductID.Product
			out.Items[i].ProductID.Product = &p
		}
	}
	return &out
}
