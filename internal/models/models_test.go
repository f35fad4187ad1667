package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCartItemDecodesProductRefVariants(t *testing.T) {
	var byID CartItem
	if err := json.Unmarshal([]byte(`{"id":"i1","productQtd":2,"totalAmount":20.5,"activeStatus":true,"productId":"p1"}`), &byID); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if byID.ProductID.ID != "p1" || byID.ProductID.Product != nil || !byID.TotalAmount.Equal(decimal.RequireFromString("20.5")) {
		t.Fatalf("item = %+v", byID)
	}

	var embedded CartItem
	if err := json.Unmarshal([]byte(`{"id":"i2","productQtd":1,"productId":{"id":"p2","name":"Diver","price":99.9}}`), &embedded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if embedded.ProductID.ID != "p2" || embedded.ProductID.Product == nil || embedded.ProductID.Product.Name != "Diver" {
		t.Fatalf("item = %+v", embedded)
	}

	out, err := json.Marshal(embedded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `"productId":"p2"`) {
		t.Fatalf("productId not encoded as id: %s", out)
	}
}

func TestItemRefsDecodeVariants(t *testing.T) {
	var c Cart
	raw := `{"id":"c1","totalOrder":"12.30","cartItemId":["a",{"id":"b"},{"_id":"c"},{}]}`
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := strings.Join(c.CartItemIDs, ","); got != "a,b,c" {
		t.Fatalf("refs = %s", got)
	}
	if !c.TotalOrder.Equal(decimal.RequireFromString("12.3")) {
		t.Fatalf("total = %s", c.TotalOrder)
	}

	if err := json.Unmarshal([]byte(`{"cartItemId":null}`), &c); err != nil || c.CartItemIDs != nil {
		t.Fatalf("null refs = %v, %v", c.CartItemIDs, err)
	}
	if err := json.Unmarshal([]byte(`{"cartItemId":[1]}`), &c); err == nil {
		t.Fatal("numeric ref accepted")
	}
}

func TestMoneyEncodesAsNumber(t *testing.T) {
	out, err := json.Marshal(Cart{ID: "c", TotalOrder: decimal.RequireFromString("10.50")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `"totalOrder":10.5`) {
		t.Fatalf("total not a JSON number: %s", out)
	}
}

func TestRecomputeAndAggregates(t *testing.T) {
	c := &CartWithItems{
		Cart: Cart{ID: "c", TotalOrder: decimal.RequireFromString("999")},
		Items: []CartItem{
			{ID: "a", ProductQtd: 2, TotalAmount: LineTotal(2, decimal.RequireFromString("10.00")), ActiveStatus: true, ProductID: RefTo("p1")},
			{ID: "b", ProductQtd: 3, TotalAmount: LineTotal(3, decimal.RequireFromString("0.10")), ActiveStatus: true, ProductID: RefTo("p2")},
			{ID: "x", ProductQtd: 7, TotalAmount: decimal.RequireFromString("70"), ActiveStatus: false, ProductID: RefTo("p1")},
		},
	}
	if c.Consistent() {
		t.Fatal("stale total reported consistent")
	}
	c.Recompute()
	if !c.TotalOrder.Equal(decimal.RequireFromString("20.30")) || !c.Consistent() {
		t.Fatalf("total = %s", c.TotalOrder)
	}
	if c.ItemCount() != 5 || len(c.ActiveItems()) != 2 {
		t.Fatalf("count = %d active = %d", c.ItemCount(), len(c.ActiveItems()))
	}
	if i, ok := c.FindProduct("p1"); !ok || c.Items[i].ID != "a" {
		t.Fatalf("FindProduct(p1) = %d, %v", i, ok)
	}
	if _, ok := c.FindItem("zz"); ok {
		t.Fatal("found unknown item")
	}
	if FormatMoney(c.TotalAmount()) != "20.30" {
		t.Fatalf("formatted = %s", FormatMoney(c.TotalAmount()))
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := &Product{ID: "p", Name: "orig"}
	c := &CartWithItems{
		Cart:  Cart{ID: "c", CartItemIDs: ItemRefs{"a"}},
		Items: []CartItem{{ID: "a", ProductQtd: 1, ProductID: ProductRef{ID: "p", Product: p}}},
	}
	cp := c.Clone()
	cp.Items[0].ProductQtd = 9
	cp.Items[0].ProductID.Product.Name = "changed"
	cp.CartItemIDs[0] = "z"
	if c.Items[0].ProductQtd != 1 || p.Name != "orig" || c.CartItemIDs[0] != "a" {
		t.Fatal("clone shares state with the original")
	}
	var nilCart *CartWithItems
	if nilCart.Clone() != nil {
		t.Fatal("nil clone not nil")
	}
}

func TestClientDisplayName(t *testing.T) {
	cases := []struct {
		c    Client
		want string
	}{
		{Client{Name: "Jane Doe", FirstName: "X"}, "Jane Doe"},
		{Client{FirstName: "Jane", LastName: "Doe"}, "Jane Doe"},
		{Client{LastName: "Doe"}, "Doe"},
	}
	for _, tc := range cases {
		if got := tc.c.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tc.c, got, tc.want)
		}
	}
}
