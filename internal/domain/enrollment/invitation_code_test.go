package enrollment

import (
	"testing"
	"time"
)

func TestInvitationCodeStatusPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	one := 1

	cases := []struct {
		name string
		code InvitationCode
		want CodeStatus
	}{
		{"active unlimited", InvitationCode{IsActive: true}, StatusActive},
		{"active with room", InvitationCode{IsActive: true, MaxUses: &one, ExpiresAt: &future}, StatusActive},
		{"depleted", InvitationCode{IsActive: true, MaxUses: &one, UsedCount: 1}, StatusDepleted},
		{"expired beats depleted", InvitationCode{IsActive: true, MaxUses: &one, UsedCount: 1, ExpiresAt: &past}, StatusExpired},
		{"inactive beats expired", InvitationCode{IsActive: false, ExpiresAt: &past}, StatusInactive},
		{"expires exactly now", InvitationCode{IsActive: true, ExpiresAt: &now}, StatusExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.code.Status(now); got != tc.want {
				t.Fatalf("Status: want=%s got=%s", tc.want, got)
			}
		})
	}
}

func TestRemainingUses(t *testing.T) {
	c := InvitationCode{}
	if c.RemainingUses() != nil {
		t.Fatalf("unlimited: want=nil")
	}
	max := 3
	c = InvitationCode{MaxUses: &max, UsedCount: 5}
	if got := *c.RemainingUses(); got != 0 {
		t.Fatalf("overused: want=0 got=%d", got)
	}
}
