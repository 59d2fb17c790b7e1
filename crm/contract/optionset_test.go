package contract

import (
	"strings"
	"testing"
)

func TestCheckOptionSet(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field   string
		code    int
		wantErr bool
	}{
		{"opportunityratingcode", 1, false},
		{"opportunityratingcode", 3, false},
		{"opportunityratingcode", 0, true},
		{"opportunityratingcode", 9, true},
		{"budgetstatus", 0, false},
		{"budgetstatus", 3, false},
		{"budgetstatus", 4, true},
		{"need", 3, false},
		{"need", -1, true},
		{"purchaseprocess", 2, false},
		{"purchaseprocess", 3, true},
		{"xylos_opportunitytype", 999, false},
	}
	for _, tc := range cases {
		err := CheckOptionSet(tc.field, tc.code)
		if (err != nil) != tc.wantErr {
			t.Fatalf("CheckOptionSet(%q, %d) error = %v, wantErr %v", tc.field, tc.code, err, tc.wantErr)
		}
	}
}

func TestCheckOptionSetMessageNamesLegalValues(t *testing.T) {
	t.Parallel()

	err := CheckOptionSet("opportunityratingcode", 9)
	if err == nil {
		t.Fatal("CheckOptionSet() accepted 9")
	}
	if !strings.Contains(err.Error(), "1 (Hot), 2 (Warm), 3 (Cold)") {
		t.Fatalf("error = %q", err)
	}
}

func TestEntityReferenceBind(t *testing.T) {
	t.Parallel()

	ref := EntityReference{ID: "a-1", Type: EntityTypeAccount}
	if got := ref.Bind(); got != "/accounts(a-1)" {
		t.Fatalf("Bind() = %q", got)
	}
}

func TestEntitySet(t *testing.T) {
	t.Parallel()

	cases := map[EntityType]string{
		EntityTypeAccount:     "accounts",
		EntityTypeContact:     "contacts",
		EntityTypeLead:        "leads",
		EntityTypeOpportunity: "opportunities",
	}
	for entityType, want := range cases {
		if got := entityType.EntitySet(); got != want {
			t.Fatalf("%s.EntitySet() = %q, want %q", entityType, got, want)
		}
	}
}
