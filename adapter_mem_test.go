package chainbase

import "testing"

func TestMemAdapterGetPutDelete(t *testing.T) {
	a := newMemAdapter(Options{})
	defer a.Close()

	id := RecordID(1)
	if v, err := a.Get(id); err != nil || v != nil {
		t.Fatalf("Get(missing) = %v, %v, want nil, nil", v, err)
	}

	if err := a.Put(id, []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := a.Get(id)
	if err != nil || string(v) != "v1" {
		t.Fatalf("Get = %q, %v, want %q, nil", v, err, "v1")
	}

	// Get must return a copy: mutating it must not affect the stored value.
	v[0] = 'X'
	v2, _ := a.Get(id)
	if string(v2) != "v1" {
		t.Fatalf("Get returned an aliased slice: stored value mutated to %q", v2)
	}

	if err := a.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v, err := a.Get(id); err != nil || v != nil {
		t.Fatalf("Get(after delete) = %v, %v, want nil, nil", v, err)
	}
}

func TestMemAdapterMergeWithoutOperatorActsLikePut(t *testing.T) {
	a := newMemAdapter(Options{})
	defer a.Close()

	id := RecordID(1)
	if err := a.Merge(id, []byte("a")); err != nil {
		t.Fatalf("Merge(1): %v", err)
	}
	if err := a.Merge(id, []byte("b")); err != nil {
		t.Fatalf("Merge(2): %v", err)
	}
	v, _ := a.Get(id)
	if string(v) != "b" {
		t.Fatalf("Get after two merges without operator = %q, want %q", v, "b")
	}
}

func TestMemAdapterMergeAppliesOperator(t *testing.T) {
	sum := func(existing, value []byte) []byte {
		if existing == nil {
			return value
		}
		return append(append([]byte(nil), existing...), value...)
	}
	a := newMemAdapter(Options{MergeOperator: sum})
	defer a.Close()

	id := RecordID(1)
	for _, chunk := range []string{"a", "b", "c"} {
		if err := a.Merge(id, []byte(chunk)); err != nil {
			t.Fatalf("Merge(%q): %v", chunk, err)
		}
	}

	v, err := a.Get(id)
	if err != nil || string(v) != "abc" {
		t.Fatalf("Get after three merges = %q, %v, want %q, nil", v, err, "abc")
	}
}

func TestMemAdapterClosedReturnsErrAdapterClosed(t *testing.T) {
	a := newMemAdapter(Options{})
	a.Close()

	if _, err := a.Get(RecordID(1)); err != ErrAdapterClosed {
		t.Fatalf("Get after Close: got %v, want ErrAdapterClosed", err)
	}
	if err := a.Put(RecordID(1), []byte("x")); err != ErrAdapterClosed {
		t.Fatalf("Put after Close: got %v, want ErrAdapterClosed", err)
	}
	if err := a.Delete(RecordID(1)); err != ErrAdapterClosed {
		t.Fatalf("Delete after Close: got %v, want ErrAdapterClosed", err)
	}
	if err := a.Merge(RecordID(1), []byte("x")); err != ErrAdapterClosed {
		t.Fatalf("Merge after Close: got %v, want ErrAdapterClosed", err)
	}
}
