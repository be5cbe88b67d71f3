package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traino/internal/shared/constants"
)

func testContext(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestParsePageQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
		wantErr      bool
	}{
		{
			name:         "defaults when absent",
			query:        "",
			wantPage:     constants.DefaultPage,
			wantPageSize: constants.DefaultPageSize,
		},
		{
			name:         "explicit values",
			query:        "page=3&page_size=50",
			wantPage:     3,
			wantPageSize: 50,
		},
		{
			name:         "page_size capped at max",
			query:        "page_size=5000",
			wantPage:     constants.DefaultPage,
			wantPageSize: constants.MaxPageSize,
		},
		{
			name:    "zero page rejected",
			query:   "page=0",
			wantErr: true,
		},
		{
			name:    "negative page_size rejected",
			query:   "page_size=-1",
			wantErr: true,
		},
		{
			name:    "non-numeric page rejected",
			query:   "page=abc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePageQuery(testContext(tt.query))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
		})
	}
}

func TestParseLimitQuery(t *testing.T) {
	t.Run("absent means zero", func(t *testing.T) {
		limit, err := ParseLimitQuery(testContext(""))
		require.NoError(t, err)
		assert.Equal(t, 0, limit)
	})

	t.Run("explicit limit", func(t *testing.T) {
		limit, err := ParseLimitQuery(testContext("limit=25"))
		require.NoError(t, err)
		assert.Equal(t, 25, limit)
	})

	t.Run("zero rejected", func(t *testing.T) {
		_, err := ParseLimitQuery(testContext("limit=0"))
		require.Error(t, err)
	})

	t.Run("non-numeric rejected", func(t *testing.T) {
		_, err := ParseLimitQuery(testContext("limit=soon"))
		require.Error(t, err)
	})
}
