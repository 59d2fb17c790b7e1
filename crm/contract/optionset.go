package contract

import "fmt"

// Option-set fields are integer-coded enumerations in the entity model.
// The standard Dynamics sets below have fixed value ranges, checked
// locally before any network round trip. Tenant-customized xylos_*
// option sets have no knowable legal set outside the tenant metadata
// and pass through unvalidated; a bad code surfaces as a remote 400.

// OpportunityRating codes for opportunityratingcode.
type OpportunityRating int

const (
	RatingHot  OpportunityRating = 1
	RatingWarm OpportunityRating = 2
	RatingCold OpportunityRating = 3
)

func (r OpportunityRating) Valid() bool {
	return r >= RatingHot && r <= RatingCold
}

// BudgetStatus codes for budgetstatus.
type BudgetStatus int

const (
	BudgetNoCommitted BudgetStatus = 0
	BudgetMayBuy      BudgetStatus = 1
	BudgetCanBuy      BudgetStatus = 2
	BudgetWillBuy     BudgetStatus = 3
)

func (b BudgetStatus) Valid() bool {
	return b >= BudgetNoCommitted && b <= BudgetWillBuy
}

// Need codes for need.
type Need int

const (
	NeedMustHave   Need = 0
	NeedShouldHave Need = 1
	NeedGoodToHave Need = 2
	NeedNoNeed     Need = 3
)

func (n Need) Valid() bool {
	return n >= NeedMustHave && n <= NeedNoNeed
}

// PurchaseProcess codes for purchaseprocess.
type PurchaseProcess int

const (
	PurchaseCommittee  PurchaseProcess = 0
	PurchaseIndividual PurchaseProcess = 1
	PurchaseUnknown    PurchaseProcess = 2
)

func (p PurchaseProcess) Valid() bool {
	return p >= PurchaseCommittee && p <= PurchaseUnknown
}

// CheckOptionSet validates a supplied code against its field's legal
// range and returns a human-readable message when it is out of range.
func CheckOptionSet(field string, code int) error {
	var valid bool
	var legal string
	switch field {
	case "opportunityratingcode":
		valid, legal = OpportunityRating(code).Valid(), "1 (Hot), 2 (Warm), 3 (Cold)"
	case "budgetstatus":
		valid, legal = BudgetStatus(code).Valid(), "0 (No Committed Budget), 1 (May Buy), 2 (Can Buy), 3 (Will Buy)"
	case "need":
		valid, legal = Need(code).Valid(), "0 (Must have), 1 (Should have), 2 (Good to have), 3 (No need)"
	case "purchaseprocess":
		valid, legal = PurchaseProcess(code).Valid(), "0 (Committee), 1 (Individual), 2 (Unknown)"
	default:
		return nil
	}
	if !valid {
		return fmt.Errorf("%s must be one of %s, got %d", field, legal, code)
	}
	return nil
}
