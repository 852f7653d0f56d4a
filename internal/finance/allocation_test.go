package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocate_WaterfallOrdering(t *testing.T) {
	balance := Balance{
		PrincipalRemaining: dec("1000"),
		InterestRemaining:  dec("100"),
		LateFeeRemaining:   dec("150"),
	}

	alloc := Allocate(dec("200"), balance)

	// Interest first, then late fee; principal gets nothing.
	assert.Equal(t, "100.00", alloc.PaidInterest.StringFixed(2))
	assert.Equal(t, "100.00", alloc.PaidLateFee.StringFixed(2))
	assert.Equal(t, "0.00", alloc.PaidPrincipal.StringFixed(2))
	assert.Equal(t, "200.00", alloc.Total().StringFixed(2))
}

func TestAllocate_FullSettlement(t *testing.T) {
	balance := Balance{
		PrincipalRemaining: dec("500"),
		InterestRemaining:  dec("50"),
		LateFeeRemaining:   dec("25"),
	}

	alloc := Allocate(dec("575"), balance)

	assert.Equal(t, "50.00", alloc.PaidInterest.StringFixed(2))
	assert.Equal(t, "25.00", alloc.PaidLateFee.StringFixed(2))
	assert.Equal(t, "500.00", alloc.PaidPrincipal.StringFixed(2))
}

func TestAllocate_OverpaymentNotConsumed(t *testing.T) {
	balance := Balance{
		PrincipalRemaining: dec("100"),
		InterestRemaining:  dec("10"),
		LateFeeRemaining:   dec("0"),
	}

	alloc := Allocate(dec("500"), balance)

	// The excess over the total owed stays with the caller.
	assert.Equal(t, "110.00", alloc.Total().StringFixed(2))
}

func TestAllocate_NegativeInputsClamped(t *testing.T) {
	balance := Balance{
		PrincipalRemaining: dec("-5"),
		InterestRemaining:  dec("-1"),
		LateFeeRemaining:   dec("-2"),
	}

	alloc := Allocate(dec("-50"), balance)

	assert.True(t, alloc.PaidPrincipal.IsZero())
	assert.True(t, alloc.PaidInterest.IsZero())
	assert.True(t, alloc.PaidLateFee.IsZero())
}

func TestRenew_ClearsYieldKeepsPrincipal(t *testing.T) {
	balance := Balance{
		PrincipalRemaining: dec("1000"),
		InterestRemaining:  dec("100"),
		LateFeeRemaining:   dec("37.50"),
	}

	alloc := Renew(balance)

	assert.True(t, alloc.PaidPrincipal.IsZero())
	assert.Equal(t, "100.00", alloc.PaidInterest.StringFixed(2))
	assert.Equal(t, "37.50", alloc.PaidLateFee.StringFixed(2))
}
