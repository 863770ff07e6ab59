package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		page, limit int
		want        Params
	}{
		{0, 0, Params{Page: 1, Limit: 30, Offset: 0}},
		{3, 10, Params{Page: 3, Limit: 10, Offset: 20}},
		{-2, 500, Params{Page: 1, Limit: MaxLimit, Offset: 0}},
	}
	for _, tt := range tests {
		if got := Normalize(tt.page, tt.limit, 30); got != tt.want {
			t.Errorf("Normalize(%d, %d) = %+v, want %+v", tt.page, tt.limit, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	c.Request = httptest.NewRequest("GET", "/?page=2&limit=abc", nil)
	if got := Parse(c); got.Page != 2 || got.Limit != DefaultLimit || got.Offset != DefaultLimit {
		t.Errorf("Parse = %+v", got)
	}

	c.Request = httptest.NewRequest("GET", "/", nil)
	if got := ParseWithDefault(c, 30); got.Limit != 30 {
		t.Errorf("ParseWithDefault = %+v", got)
	}
}
