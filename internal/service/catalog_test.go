package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
)

func TestCatalogLookup(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	catalog := NewCatalog(env.products)
	ctx := context.Background()

	var wg sync.WaitGroup
	matches := make([]billing.CatalogMatch, 4)
	errs := make([]error, len(matches))
	for i := range matches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			matches[i], errs[i] = catalog.LookupSKU(ctx, "SHIRT-RED-M")
		}(i)
	}
	wg.Wait()
	for i, m := range matches {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if m.Product.SKU != "SHIRT" || m.Variant == nil || m.Variant.VariantSKU != "SHIRT-RED-M" {
			t.Errorf("match %d = %+v", i, m)
		}
	}

	if _, err := catalog.LookupSKU(ctx, "NOPE"); !errors.Is(err, billing.ErrSKUNotFound) {
		t.Errorf("miss err = %v", err)
	}
}

// slowVariants holds variant lookups until released, honouring ctx like a
// real driver does.
type slowVariants struct {
	repository.ProductRepository
	started chan struct{}
	once    sync.Once
	release chan struct{}
}

func (r *slowVariants) FindVariantBySKU(ctx context.Context, vsku string) (*model.ProductVariant, error) {
	r.once.Do(func() { close(r.started) })
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.ProductRepository.FindVariantBySKU(ctx, vsku)
}

func TestCatalogLookupSurvivesOtherCallerCancel(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	repo := &slowVariants{ProductRepository: env.products, started: make(chan struct{}), release: make(chan struct{})}
	catalog := NewCatalog(repo)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := catalog.LookupSKU(first, "SHIRT-RED-M")
		firstErr <- err
	}()
	<-repo.started

	type result struct {
		match billing.CatalogMatch
		err   error
	}
	second := make(chan result, 1)
	go func() {
		m, err := catalog.LookupSKU(context.Background(), "SHIRT-RED-M")
		second <- result{m, err}
	}()
	time.Sleep(50 * time.Millisecond) // let the second scan join the shared query

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v", err)
	}

	close(repo.release)
	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("healthy caller err = %v", res.err)
		}
		if res.match.Variant == nil || res.match.Variant.VariantSKU != "SHIRT-RED-M" {
			t.Errorf("match = %+v", res.match)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("healthy caller never returned")
	}
}
