package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name       string
		companyID  string
		employeeID string
		amount     int64
		currency   string
		wantErr    error
	}{
		{"Valid", "cmp-1", "emp-1", 5000, "GHS", nil},
		{"EmptyCompany", "", "emp-1", 5000, "GHS", ErrEmptyCompanyID},
		{"EmptyEmployee", "cmp-1", "", 5000, "GHS", ErrEmptyEmployee},
		{"ZeroAmount", "cmp-1", "emp-1", 0, "GHS", ErrInvalidAmount},
		{"NegativeAmount", "cmp-1", "emp-1", -100, "GHS", ErrInvalidAmount},
		{"BadCurrency", "cmp-1", "emp-1", 5000, "CEDI", ErrInvalidCurrencyFormat},
		{"EmptyCurrency", "cmp-1", "emp-1", 5000, "", ErrInvalidCurrencyFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			alloc, err := New(tc.companyID, tc.employeeID, tc.amount, tc.currency, "travel", "Q3 travel budget", "admin-1", nil)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, alloc.Status)
			assert.NotEqual(t, alloc.ID.String(), "00000000-0000-0000-0000-000000000000")
		})
	}
}

func TestAllocation_AcceptIsTerminal(t *testing.T) {
	alloc, err := New("cmp-1", "emp-1", 5000, "GHS", "travel", "", "admin-1", nil)
	require.NoError(t, err)

	require.NoError(t, alloc.Accept())
	assert.Equal(t, StatusAccepted, alloc.Status)

	// Second transition must fail, not silently succeed
	err = alloc.Accept()
	var processedErr ErrAllocationProcessed
	require.ErrorAs(t, err, &processedErr)
	assert.Equal(t, alloc.ID, processedErr.ID)
	assert.Equal(t, StatusAccepted, processedErr.Status)

	err = alloc.Reject()
	assert.ErrorAs(t, err, &processedErr)
	assert.Equal(t, StatusAccepted, alloc.Status)
}

func TestAllocation_RejectIsTerminal(t *testing.T) {
	alloc, err := New("cmp-1", "emp-1", 5000, "GHS", "travel", "", "admin-1", nil)
	require.NoError(t, err)

	require.NoError(t, alloc.Reject())
	assert.Equal(t, StatusRejected, alloc.Status)

	var processedErr ErrAllocationProcessed
	assert.ErrorAs(t, alloc.Accept(), &processedErr)
	assert.ErrorAs(t, alloc.Reject(), &processedErr)
}

func TestAllocation_AcceptExpired(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	alloc, err := New("cmp-1", "emp-1", 5000, "GHS", "travel", "", "admin-1", &expired)
	require.NoError(t, err)

	err = alloc.Accept()
	var expiredErr ErrAllocationExpired
	require.ErrorAs(t, err, &expiredErr)
	assert.Equal(t, alloc.ID, expiredErr.ID)

	// The allocation stays pending; a reject is still allowed
	assert.Equal(t, StatusPending, alloc.Status)
	assert.NoError(t, alloc.Reject())
}

func TestAllocation_Expired(t *testing.T) {
	future := time.Now().Add(time.Hour)
	alloc, err := New("cmp-1", "emp-1", 5000, "GHS", "travel", "", "admin-1", &future)
	require.NoError(t, err)

	assert.False(t, alloc.Expired(time.Now()))
	assert.True(t, alloc.Expired(future.Add(time.Minute)))

	noExpiry, err := New("cmp-1", "emp-1", 5000, "GHS", "travel", "", "admin-1", nil)
	require.NoError(t, err)
	assert.False(t, noExpiry.Expired(time.Now().Add(24*365*time.Hour)))
}
