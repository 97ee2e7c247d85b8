package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"venue_pos_backend/internal/models"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type venueWorld struct {
	f        *fixture
	products map[string]*models.Product
	waiters  map[string]models.Actor
	session  *models.CashSession
	sale     *SaleResult
	report   *models.ReconciliationReport
	err      error
}

func (w *venueWorld) reset() {
	if w.f != nil {
		_ = w.f.notifier.Close(context.Background())
	}
	w.f = wireFixture()
	w.products = map[string]*models.Product{}
	w.waiters = map[string]models.Actor{"ana": waiter, "luis": waiter2}
	w.session, w.sale, w.report, w.err = nil, nil, nil, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func (w *venueWorld) create(req CreateProductRequest) error {
	p, err := w.f.ledger.CreateProduct(context.Background(), req)
	if err != nil {
		return err
	}
	w.products[p.Name] = p
	return nil
}

func (w *venueWorld) product(name string) (*models.Product, error) {
	p, ok := w.products[name]
	if !ok {
		return nil, fmt.Errorf("unknown product %q", name)
	}
	return w.f.ledger.GetProduct(context.Background(), p.ID)
}

func (w *venueWorld) anOpenCashSession(initial string) error {
	amount, err := parseDecimal(initial)
	if err != nil {
		return err
	}
	w.session, err = w.f.cash.Open(context.Background(), OpenSessionRequest{InitialCash: amount}, admin)
	return err
}

func (w *venueWorld) aDrink(name, price, qty, minStock string) error {
	p, err := parseDecimal(price)
	if err != nil {
		return err
	}
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	m, err := parseDecimal(minStock)
	if err != nil {
		return err
	}
	return w.create(CreateProductRequest{Name: name, Category: models.CategoryDrink, Price: p, Quantity: q, MinStock: m})
}

func (w *venueWorld) aSupply(name, qty string) error {
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	return w.create(CreateProductRequest{Name: name, Category: models.CategorySupply, Quantity: q})
}

func (w *venueWorld) aCocktail(name, price, qty, ingredient string) error {
	p, err := parseDecimal(price)
	if err != nil {
		return err
	}
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	ing, err := w.product(ingredient)
	if err != nil {
		return err
	}
	if err := w.create(CreateProductRequest{Name: name, Category: models.CategoryCocktail, Price: p}); err != nil {
		return err
	}
	_, err = w.f.recipes.SetRecipe(context.Background(), w.products[name].ID, []RecipeItemRequest{{IngredientID: ing.ID, Quantity: q}})
	return err
}

func (w *venueWorld) waiterSells(waiterName, qty, productName string) error {
	actor, ok := w.waiters[waiterName]
	if !ok {
		return fmt.Errorf("unknown waiter %q", waiterName)
	}
	p, err := w.product(productName)
	if err != nil {
		return err
	}
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	w.sale, w.err = w.f.sales.Submit(context.Background(), SubmitSaleRequest{
		Items: []OrderLine{{ProductID: p.ID, Quantity: q}}, PaymentMethod: models.PaymentCash,
	}, actor)
	return nil
}

func (w *venueWorld) theSaleIsCollectedInCash() error {
	if w.sale == nil {
		return fmt.Errorf("no sale was committed: %v", w.err)
	}
	_, err := w.f.payments.Collect(context.Background(), w.sale.Sale.ID, models.PaymentCash)
	return err
}

func (w *venueWorld) anExpenseIsRecorded(amount, description string) error {
	a, err := parseDecimal(amount)
	if err != nil {
		return err
	}
	_, err = w.f.cash.RecordExpense(context.Background(), w.session.ID, a, description)
	return err
}

func (w *venueWorld) theSessionIsClosed(counted string) error {
	c, err := parseDecimal(counted)
	if err != nil {
		return err
	}
	w.report, err = w.f.cash.Close(context.Background(), w.session.ID, c, nil)
	return err
}

func expectDecimal(what, want string, got decimal.Decimal) error {
	d, err := parseDecimal(want)
	if err != nil {
		return err
	}
	if !d.Equal(got) {
		return fmt.Errorf("expected %s %s, got %s", what, want, got)
	}
	return nil
}

func (w *venueWorld) theExpectedCashIs(want string) error {
	return expectDecimal("expected cash", want, w.report.ExpectedCash)
}

func (w *venueWorld) theDifferenceIs(want string) error {
	return expectDecimal("difference", want, w.report.Difference)
}

func (w *venueWorld) theOutcomeIs(want string) error {
	if string(w.report.Outcome) != want {
		return fmt.Errorf("expected outcome %s, got %s", want, w.report.Outcome)
	}
	return nil
}

func (w *venueWorld) availabilityIsChecked(qty, productName string) error {
	p, err := w.product(productName)
	if err != nil {
		return err
	}
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	w.err = w.f.checker.CheckOrder(context.Background(), []OrderLine{{ProductID: p.ID, Quantity: q}})
	return nil
}

func (w *venueWorld) theOrderIsShortOf(name, required, available string) error {
	var stockErr *InsufficientStockError
	if !errors.As(w.err, &stockErr) {
		return fmt.Errorf("expected insufficient stock, got %v", w.err)
	}
	for _, s := range stockErr.Shortages {
		if s.ProductName != name {
			continue
		}
		if err := expectDecimal("required", required, s.Required); err != nil {
			return err
		}
		return expectDecimal("available", available, s.Available)
	}
	return fmt.Errorf("no shortage reported for %s", name)
}

func (w *venueWorld) theSaleIsRejected() error {
	if !errors.Is(w.err, ErrInsufficientStock) {
		return fmt.Errorf("expected insufficient stock, got %v", w.err)
	}
	return nil
}

func (w *venueWorld) productHasStock(name, want string) error {
	p, err := w.product(name)
	if err != nil {
		return err
	}
	return expectDecimal(name+" quantity", want, p.Quantity)
}

func (w *venueWorld) productHasStatus(name, want string) error {
	p, err := w.product(name)
	if err != nil {
		return err
	}
	if string(p.Status) != want {
		return fmt.Errorf("expected %s status %s, got %s", name, want, p.Status)
	}
	return nil
}

func (w *venueWorld) restock(qty, name string) error {
	p, err := w.product(name)
	if err != nil {
		return err
	}
	q, err := parseDecimal(qty)
	if err != nil {
		return err
	}
	_, err = w.f.ledger.Restock(context.Background(), p.ID, q)
	return err
}

func (w *venueWorld) barOrder() (*models.FulfillmentOrder, error) {
	if w.sale == nil {
		return nil, fmt.Errorf("no sale was committed: %v", w.err)
	}
	for _, o := range w.sale.FulfillmentOrders {
		if o.Department == models.DepartmentBar {
			return w.f.queue.Get(context.Background(), o.ID)
		}
	}
	return nil, errors.New("sale has no bar order")
}

func (w *venueWorld) aBarOrderIsPending() error {
	o, err := w.barOrder()
	if err != nil {
		return err
	}
	if o.Status != models.FulfillmentPending {
		return fmt.Errorf("expected pending bar order, got %s", o.Status)
	}
	return nil
}

func (w *venueWorld) theBartenderStartsAndFinishes() error {
	o, err := w.barOrder()
	if err != nil {
		return err
	}
	if _, err := w.f.queue.StartPreparing(context.Background(), o.ID, bartender); err != nil {
		return err
	}
	_, err = w.f.queue.MarkReady(context.Background(), o.ID, bartender)
	return err
}

func (w *venueWorld) waiterCannotDeliver(name string) error {
	o, err := w.barOrder()
	if err != nil {
		return err
	}
	_, err = w.f.queue.MarkDelivered(context.Background(), o.ID, w.waiters[name])
	if !errors.Is(err, ErrAuthorizationDenied) {
		return fmt.Errorf("expected authorization denied, got %v", err)
	}
	return nil
}

func (w *venueWorld) waiterDelivers(name string) error {
	o, err := w.barOrder()
	if err != nil {
		return err
	}
	_, err = w.f.queue.MarkDelivered(context.Background(), o.ID, w.waiters[name])
	return err
}

func initializeVenueScenario(sc *godog.ScenarioContext) {
	w := &venueWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.reset()
		return ctx, nil
	})

	sc.Step(`^an open cash session with initial cash (\d+)$`, w.anOpenCashSession)
	sc.Step(`^a drink "([^"]*)" priced (\d+) with (\d+) in stock and minimum (\d+)$`, w.aDrink)
	sc.Step(`^a (?:supply|cocktail ingredient) "([^"]*)" with (\d+) in stock$`, w.aSupply)
	sc.Step(`^a cocktail "([^"]*)" priced (\d+) made with (\d+) of "([^"]*)"$`, w.aCocktail)

	sc.Step(`^the waiter "([^"]*)" sells (\d+) "([^"]*)"$`, w.waiterSells)
	sc.Step(`^the sale is collected in cash$`, w.theSaleIsCollectedInCash)
	sc.Step(`^an expense of (\d+) for "([^"]*)" is recorded$`, w.anExpenseIsRecorded)
	sc.Step(`^the session is closed with (\d+) counted$`, w.theSessionIsClosed)
	sc.Step(`^the availability of (\d+) "([^"]*)" is checked$`, w.availabilityIsChecked)
	sc.Step(`^(\d+) of "([^"]*)" are restocked$`, w.restock)
	sc.Step(`^the bartender starts and finishes the bar order$`, w.theBartenderStartsAndFinishes)

	sc.Step(`^the expected cash is (\d+)$`, w.theExpectedCashIs)
	sc.Step(`^the difference is (-?\d+)$`, w.theDifferenceIs)
	sc.Step(`^the outcome is "([^"]*)"$`, w.theOutcomeIs)
	sc.Step(`^the order is short of "([^"]*)" requiring (\d+) with (\d+) available$`, w.theOrderIsShortOf)
	sc.Step(`^the sale is rejected for insufficient stock$`, w.theSaleIsRejected)
	sc.Step(`^"([^"]*)" has (\d+) in stock$`, w.productHasStock)
	sc.Step(`^"([^"]*)" has status "([^"]*)"$`, w.productHasStatus)
	sc.Step(`^a bar order is pending$`, w.aBarOrderIsPending)
	sc.Step(`^the waiter "([^"]*)" cannot deliver the bar order$`, w.waiterCannotDeliver)
	sc.Step(`^the waiter "([^"]*)" delivers the bar order$`, w.waiterDelivers)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "venue",
		ScenarioInitializer: initializeVenueScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
