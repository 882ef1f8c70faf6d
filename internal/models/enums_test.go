package models

import "testing"

func TestStatusDescription(t *testing.T) {
	t.Parallel()

	cases := map[Status]string{
		StatusPending:   "pending",
		StatusPaused:    "paused",
		StatusResolved:  "done",
		StatusCancelled: "cancelled",
	}
	for status, want := range cases {
		if got := status.Description(); got != want {
			t.Errorf("Description(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	if status, err := ParseStatus(" paused "); err != nil || status != StatusPaused {
		t.Fatalf("ParseStatus(paused) = %v, %v", status, err)
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Fatal("ParseStatus(done) should fail; DONE is an action, not a status")
	}
}

func TestActionStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		action Action
		status Status
		ok     bool
	}{
		{ActionDone, StatusResolved, true},
		{ActionPending, StatusPending, true},
		{ActionPause, StatusPaused, true},
		{ActionCancel, StatusCancelled, true},
		{ActionRemove, "", false},
		{ActionConfirm, "", false},
	}
	for _, tc := range cases {
		status, ok := tc.action.Status()
		if status != tc.status || ok != tc.ok {
			t.Errorf("Status(%s) = %v, %v; want %v, %v", tc.action, status, ok, tc.status, tc.ok)
		}
	}
}

func TestParseSources(t *testing.T) {
	t.Parallel()

	sources, err := ParseSources("amazon, audible,,STORYTEL")
	if err != nil {
		t.Fatal(err)
	}
	want := []Source{SourceAmazon, SourceAudible, SourceStorytel}
	if len(sources) != len(want) {
		t.Fatalf("ParseSources returned %v, want %v", sources, want)
	}
	for i := range want {
		if sources[i] != want[i] {
			t.Errorf("sources[%d] = %s, want %s", i, sources[i], want[i])
		}
	}

	if _, err := ParseSources("amazon,netflix"); err == nil {
		t.Fatal("ParseSources should reject unknown sources")
	}
}

func TestRoleAtLeast(t *testing.T) {
	t.Parallel()

	if !RoleAdmin.AtLeast(RoleContributor) {
		t.Error("admin should satisfy contributor checks")
	}
	if RoleUser.AtLeast(RoleContributor) {
		t.Error("user must not satisfy contributor checks")
	}
	if !RoleSuperAdmin.AtLeast(RoleAdmin) {
		t.Error("super admin should satisfy admin checks")
	}
}

func TestGroupSourcePolicy(t *testing.T) {
	t.Parallel()

	open := Group{}
	if !open.AllowsSource(SourceKindle) {
		t.Error("empty allow-list should accept any source")
	}

	restricted := Group{
		AllowedSources:  []Source{SourceAmazon},
		NoRepeatSources: []Source{SourceAmazon},
	}
	if restricted.AllowsSource(SourceKindle) {
		t.Error("source outside the allow-list should be rejected")
	}
	if !restricted.NoRepeat(SourceAmazon) {
		t.Error("listed source should be subject to the duplicate check")
	}
	if restricted.NoRepeat(SourceKindle) {
		t.Error("unlisted source should skip the duplicate check")
	}
}
