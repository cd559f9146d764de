package domain

import "testing"

func TestNextSequence_Monotonic(t *testing.T) {
	a := NextSequence()
	b := NextSequence()
	if b <= a {
		t.Errorf("NextSequence() not monotonic: a=%d b=%d", a, b)
	}
}
