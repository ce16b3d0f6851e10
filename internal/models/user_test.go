package models

import "testing"

func TestProfileValidate(t *testing.T) {
	customer := &CustomerProfile{DisplayName: "ann"}
	wholesaler := &WholesalerProfile{CompanyName: "Acme Wholesale"}
	influencer := &InfluencerProfile{DisplayName: "ann.live"}

	tests := []struct {
		name    string
		role    Role
		profile Profile
		wantErr bool
	}{
		{"customer with customer profile", RoleCustomer, Profile{Customer: customer}, false},
		{"customer with empty profile", RoleCustomer, Profile{}, false},
		{"customer with influencer profile", RoleCustomer, Profile{Influencer: influencer}, true},
		{"wholesaler with wholesaler profile", RoleWholesaler, Profile{Wholesaler: wholesaler}, false},
		{"wholesaler missing profile", RoleWholesaler, Profile{}, true},
		{"influencer with influencer profile", RoleInfluencer, Profile{Influencer: influencer}, false},
		{"influencer with customer profile", RoleInfluencer, Profile{Customer: customer}, true},
		{"two variants set", RoleInfluencer, Profile{Customer: customer, Influencer: influencer}, true},
		{"unknown role", Role("admin"), Profile{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate(tt.role)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%s) error = %v, wantErr %v", tt.role, err, tt.wantErr)
			}
		})
	}
}

func TestCredentialDerivedState(t *testing.T) {
	var missing *InfluencerCredential
	if missing.BroadcastReady() || missing.ViewerReady() {
		t.Fatalf("nil credential reported ready")
	}
	if missing.Access() != WatchAccessLimited {
		t.Fatalf("nil credential access = %q, want limited", missing.Access())
	}

	cred := &InfluencerCredential{
		BroadcasterRoom:  "room",
		BroadcasterToken: "tok",
	}
	if cred.BroadcastReady() {
		t.Fatalf("broadcast ready without streaming enabled")
	}
	cred.IsStreamingEnabled = true
	if !cred.BroadcastReady() {
		t.Fatalf("broadcast not ready with pair + gate")
	}
	if cred.Access() != WatchAccessLimited {
		t.Fatalf("access = %q without viewer pair, want limited", cred.Access())
	}

	cred.ViewerRoom = "room"
	cred.ViewerToken = "vtok"
	if cred.Access() != WatchAccessFull {
		t.Fatalf("access = %q with viewer pair, want full", cred.Access())
	}

	st := cred.Status()
	if !st.HasBroadcasterToken || !st.HasViewerToken {
		t.Fatalf("status presence flags wrong: %+v", st)
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	if StatusScheduled.Terminal() || StatusLive.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
	if !StatusEnded.Terminal() || !StatusCancelled.Terminal() {
		t.Fatalf("terminal status not reported terminal")
	}
}
