package catalog

import "testing"

func TestDefault_PricesAndOrder(t *testing.T) {
	t.Parallel()

	c := Default()

	price, ok := c.Price("MacBook")
	if !ok || price != 1 {
		t.Fatalf("expected MacBook price 1, got %d (ok=%v)", price, ok)
	}
	if _, ok := c.Price("Unknown-Product"); ok {
		t.Fatalf("expected unknown product to be absent")
	}

	products := c.Products()
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}
	if products[0].Name != "MacBook" || products[4].Name != "Apple Watch" {
		t.Fatalf("unexpected order: %+v", products)
	}
}

func TestNew_IgnoresDuplicatesAndCopiesList(t *testing.T) {
	t.Parallel()

	c := New([]Product{{Name: "A", Price: 2}, {Name: "A", Price: 9}})

	price, _ := c.Price("A")
	if price != 2 {
		t.Fatalf("expected first price to win, got %d", price)
	}

	list := c.Products()
	list[0].Price = 100
	if again, _ := c.Price("A"); again != 2 {
		t.Fatalf("expected catalog to be unaffected by caller mutation")
	}
}
