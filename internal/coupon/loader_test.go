package coupon

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"checkout-core/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestCouponFile creates a gzipped coupon file with one entry per line.
func createTestCouponFile(t *testing.T, filename string, lines []string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), filename)

	file, err := os.Create(filePath)
	require.NoError(t, err)
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		_, err := gzipWriter.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}

	return filePath
}

func TestFileLoader_Load_Success(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "coupons.gz", []string{
		`{"code":"FIVEOFF","discountType":"fixed","discountValue":"5","expirationDate":"2030-01-01T00:00:00Z","maxUsage":100}`,
		`{"code":"TENPCT","discountType":"percentage","discountValue":10,"expirationDate":"2030-06-01T00:00:00Z","minPurchaseAmount":"50"}`,
	})

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "FIVEOFF", reqs[0].Code)
	assert.Equal(t, model.DiscountFixed, reqs[0].DiscountType)
	assert.True(t, decimal.NewFromInt(5).Equal(reqs[0].DiscountValue))
	assert.Equal(t, 100, reqs[0].MaxUsage)

	assert.Equal(t, model.DiscountPercentage, reqs[1].DiscountType)
	assert.True(t, decimal.NewFromInt(50).Equal(reqs[1].MinPurchaseAmount))
	assert.Equal(t, 2030, reqs[1].ExpirationDate.Year())
}

func TestFileLoader_Load_WithEmptyLines(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "coupons_with_empty.gz", []string{
		`{"code":"CODE1","discountType":"fixed","discountValue":"1"}`,
		"",
		"   ",
		`{"code":"CODE2","discountType":"fixed","discountValue":"2"}`,
	})

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "CODE2", reqs[1].Code)
}

func TestFileLoader_Load_EmptyFile(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())
	filePath := createTestCouponFile(t, "empty.gz", nil)

	reqs, err := loader.Load(context.Background(), filePath)

	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestFileLoader_Load_MalformedLine(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := createTestCouponFile(t, "broken.gz", []string{
		`{"code":"CODE1","discountType":"fixed","discountValue":"1"}`,
		`CODE2`,
	})

	_, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.gz:2")
}

func TestFileLoader_Load_FileNotFound(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	_, err := loader.Load(context.Background(), "/nonexistent/coupons.gz")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open coupon file")
}

func TestFileLoader_Load_NotGzipped(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	filePath := filepath.Join(t.TempDir(), "plain.gz")
	require.NoError(t, os.WriteFile(filePath, []byte(`{"code":"CODE1"}`), 0o600))

	_, err := loader.Load(context.Background(), filePath)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "gzip reader")
}

func TestFileLoader_Load_ContextCancelled(t *testing.T) {
	loader := NewFileLoader(zerolog.Nop())

	lines := make([]string, 20_000)
	for i := range lines {
		lines[i] = `{"code":"BULK","discountType":"fixed","discountValue":"1"}`
	}
	filePath := createTestCouponFile(t, "large.gz", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, filePath)

	assert.ErrorIs(t, err, context.Canceled)
}
