package kvmpsc

import "testing"

func mustPop[K comparable, V any](t *testing.T, b *keyedBuffer[K, V]) Message[K, V] {
	t.Helper()
	m, ok := b.popFrontEligible()
	if !ok {
		t.Fatal("expected an eligible message")
	}
	return m
}

func TestKeyedBuffer_FIFONoConflicts(t *testing.T) {
	b := newKeyedBuffer[string, int](4)
	b.pushBack(NewSingleKeyMessage("A", 1))
	b.pushBack(NewSingleKeyMessage("B", 2))

	if b.len() != 2 {
		t.Fatalf("unexpected len: %d", b.len())
	}

	if v := mustPop(t, b).Value(); v != 1 {
		t.Fatalf("unexpected value: %d", v)
	}
	if v := mustPop(t, b).Value(); v != 2 {
		t.Fatalf("unexpected value: %d", v)
	}
	if !b.isEmpty() {
		t.Fatal("expected empty buffer")
	}
}

func TestKeyedBuffer_SingleKeyConflictBlocksThenReleases(t *testing.T) {
	// S2: cap=2, send(A,1); send(A,2); recv -> 1; recv blocks; release; recv -> 2
	b := newKeyedBuffer[string, int](2)
	b.pushBack(NewSingleKeyMessage("A", 1))
	b.pushBack(NewSingleKeyMessage("A", 2))

	m1 := mustPop(t, b)
	if m1.Value() != 1 {
		t.Fatalf("unexpected value: %d", m1.Value())
	}

	if _, ok := b.popFrontEligible(); ok {
		t.Fatal("expected the second message to conflict and stay buffered")
	}

	b.releaseKeys(m1.keys)

	m2 := mustPop(t, b)
	if m2.Value() != 2 {
		t.Fatalf("unexpected value: %d", m2.Value())
	}
}

func TestKeyedBuffer_MultiKeySkipsOverConflict(t *testing.T) {
	// S3: cap=3, send([A,B],1); send([B],2); send([C],3); recv -> 1; recv -> 3 (2 skipped)
	b := newKeyedBuffer[string, int](3)
	b.pushBack(NewMultiKeyMessage([]string{"A", "B"}, 1))
	b.pushBack(NewSingleKeyMessage("B", 2))
	b.pushBack(NewSingleKeyMessage("C", 3))

	m1 := mustPop(t, b)
	if m1.Value() != 1 {
		t.Fatalf("unexpected first value: %d", m1.Value())
	}

	m3 := mustPop(t, b)
	if m3.Value() != 3 {
		t.Fatalf("expected v=3 to be skipped-over and delivered, got %d", m3.Value())
	}

	if b.len() != 1 {
		t.Fatalf("expected v=2 to remain buffered, len=%d", b.len())
	}

	b.releaseKeys(m1.keys)

	m2 := mustPop(t, b)
	if m2.Value() != 2 {
		t.Fatalf("unexpected value after release: %d", m2.Value())
	}
}

func TestKeyedBuffer_ChainedMultiKeyConflict(t *testing.T) {
	// grounded on original_source's test_conflict_multiple_key_send_recv:
	// each message's keyset contains every earlier message's keys, forming a
	// chain that can only be drained one release at a time.
	b := newKeyedBuffer[int, int](4)
	b.pushBack(NewSingleKeyMessage(0, 0))
	b.pushBack(NewMultiKeyMessage([]int{0, 1}, 1))
	b.pushBack(NewMultiKeyMessage([]int{0, 1, 2}, 2))
	b.pushBack(NewMultiKeyMessage([]int{0, 1, 2, 3}, 3))

	for expected := 0; expected < 4; expected++ {
		m := mustPop(t, b)
		if m.Value() != expected {
			t.Fatalf("unexpected value at step %d: got %d", expected, m.Value())
		}
		if expected < 3 {
			if _, ok := b.popFrontEligible(); ok {
				t.Fatalf("expected step %d's successor to conflict before release", expected)
			}
		}
		b.releaseKeys(m.keys)
	}

	if !b.isEmpty() {
		t.Fatalf("expected buffer to be drained, len=%d", b.len())
	}
}

func TestKeyedBuffer_CapacityInvariant(t *testing.T) {
	b := newKeyedBuffer[string, int](2)
	if b.isFull() {
		t.Fatal("unexpected full buffer")
	}
	b.pushBack(NewSingleKeyMessage("A", 1))
	b.pushBack(NewSingleKeyMessage("B", 2))
	if !b.isFull() {
		t.Fatal("expected full buffer at capacity")
	}
}

func TestKeyedBuffer_ReleaseBeforeScanRewindsCursor(t *testing.T) {
	// the conflict position must be recorded at push time, not only at scan
	// time, so a release arriving before any scan still rewinds correctly.
	b := newKeyedBuffer[string, int](3)
	b.pushBack(NewSingleKeyMessage("A", 1))

	m1 := mustPop(t, b) // delivers v=1, activates A with the sentinel

	// buffer is now empty and fully scanned (cursor == nil); pushing a
	// conflicting message must immediately record the conflict position
	b.pushBack(NewSingleKeyMessage("A", 2))
	if pos := b.active["A"]; !pos.has {
		t.Fatal("expected the push to record its conflict position on the active key A")
	}

	b.releaseKeys(m1.keys)

	m2 := mustPop(t, b)
	if m2.Value() != 2 {
		t.Fatalf("unexpected value: %d", m2.Value())
	}
}

// TestKeyedBuffer_ConflictPositionTakesMinimumAcrossScans is the regression
// case for invariant 6 (conflict-pointer monotonicity): a key's recorded
// conflict position must always be the earliest buffered message that
// conflicts on it, even when a later scan records a different key's
// sentinel against that same message first. If a later, higher-position
// conflict were allowed to stick, a release could rewind the cursor to that
// stale position, skipping - and permanently stranding - an eligible
// message sitting below it, and deliver messages out of FIFO order among
// themselves.
//
// cap=4: send {A}(v0), {A,B}(v1), {B}(v2), {B}(v3).
//   - recv -> v0 (activates A)
//   - recv: v1 conflicts on A (records A@v1), v2 is eligible -> v2 (activates
//     B), cursor now past v1
//   - recv attempt: buffer non-empty but nothing eligible; scanning v3
//     records B@v3
//   - release v0 (A): cursor rewinds to v1
//   - recv attempt: v1 still conflicts, now only on B (held by the
//     unreleased v2); rescanning records B's position against v1 too -
//     without taking the minimum, B's recorded position sticks at v3
//   - release v2 (B): with the fix, the cursor correctly rewinds to v1 (the
//     earliest conflict on B); without it, it rewinds to the stale v3,
//     which has no conflicts left and is delivered immediately - ahead of
//     v1, which is left sitting below the cursor, forever unreachable.
func TestKeyedBuffer_ConflictPositionTakesMinimumAcrossScans(t *testing.T) {
	b := newKeyedBuffer[string, int](4)
	b.pushBack(NewSingleKeyMessage("A", 0))
	b.pushBack(NewMultiKeyMessage([]string{"A", "B"}, 1))
	b.pushBack(NewSingleKeyMessage("B", 2))
	b.pushBack(NewSingleKeyMessage("B", 3))

	m0 := mustPop(t, b) // activates A
	if m0.Value() != 0 {
		t.Fatalf("unexpected first value: %d", m0.Value())
	}

	m2 := mustPop(t, b) // v1 conflicts on A and is skipped; v2 activates B
	if m2.Value() != 2 {
		t.Fatalf("expected v=2 to be skipped-over and delivered, got %d", m2.Value())
	}

	if _, ok := b.popFrontEligible(); ok {
		t.Fatal("expected v=3 to conflict on B and stay buffered")
	}

	b.releaseKeys(m0.keys) // releases A; cursor rewinds to v1

	if _, ok := b.popFrontEligible(); ok {
		t.Fatal("expected v=1 to still conflict on B, held by the unreleased v=2")
	}

	// releases B; must rewind the cursor to v1 (the earliest conflict on B),
	// not to v3 (where B's conflict position was first, but not earliest,
	// recorded)
	b.releaseKeys(m2.keys)

	m1 := mustPop(t, b)
	if m1.Value() != 1 {
		t.Fatalf("expected v=1 to be delivered before v=3 (FIFO among eligible messages), got %d", m1.Value())
	}

	// v1 carries both A and B, so delivering it re-activates B; release it
	// (via the buffer directly - a buffer-returned Message has no release
	// handle installed, that only happens in core.recv via withRelease)
	// before v3, which also declares B, can become eligible
	b.releaseKeys(m1.keys)

	m3 := mustPop(t, b)
	if m3.Value() != 3 {
		t.Fatalf("expected v=3 to be delivered last, got %d", m3.Value())
	}

	if !b.isEmpty() {
		t.Fatalf("expected buffer to be drained, len=%d", b.len())
	}
}

func TestKeyedBuffer_DuplicateKeysFoldedInMultiSet(t *testing.T) {
	ks := MultipleKeys("A", "A", "B")
	if ks.Len() != 2 {
		t.Fatalf("expected duplicates folded, got len %d", ks.Len())
	}
}
