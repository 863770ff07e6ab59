package swagger

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/swaggo/swag"
)

func TestDocDescribesAPI(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("doc is not valid JSON: %v", err)
	}

	routes := map[string]string{
		"/api/auth/login":             "post",
		"/api/products/sku/{sku}":     "get",
		"/api/drafts/{id}/scan":       "post",
		"/api/drafts/{id}/submit":     "post",
		"/api/invoices":               "get",
		"/api/invoices/export":        "get",
		"/api/invoices/{id}/status":   "patch",
		"/api/inventory/transactions": "get",
		"/api/dashboard/sales":        "get",
		"/api/audit-logs":             "get",
	}
	for path, method := range routes {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("missing %s %s", method, path)
		}
	}

	for _, ref := range regexp.MustCompile(`#/definitions/([\w.]+)`).FindAllStringSubmatch(raw, -1) {
		if _, ok := doc.Definitions[ref[1]]; !ok {
			t.Errorf("dangling reference %s", ref[1])
		}
	}
}
