package validate

import "testing"

func TestEntity(t *testing.T) {
	cases := map[string]string{"listing": "listings", " Users ": "users", "listings": "listings"}
	for in, want := range cases {
		got, ok := Entity(in)
		if !ok || got != want {
			t.Errorf("Entity(%q) = %q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := Entity("photos"); ok {
		t.Error("photos is not a crawlable entity")
	}
}

func TestPolicyAndID(t *testing.T) {
	if p, ok := Policy("ABORT"); !ok || p != "abort" {
		t.Errorf("Policy(ABORT) = %q,%v", p, ok)
	}
	if _, ok := Policy("retry"); ok {
		t.Error("unknown policy accepted")
	}
	if n, ok := ID(" 42 "); !ok || n != 42 {
		t.Errorf("ID = %d,%v", n, ok)
	}
	for _, bad := range []string{"", "-1", "4x"} {
		if _, ok := ID(bad); ok {
			t.Errorf("ID(%q) accepted", bad)
		}
	}
}
