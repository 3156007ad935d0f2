package core

// Gob cannot see unexported fields, so the argument types travel in their
// JSON form inside snapshots.

func (r IndexRef) GobEncode() ([]byte, error) { return r.MarshalJSON() }

func (r *IndexRef) GobDecode(b []byte) error { return r.UnmarshalJSON(b) }

func (m MaxPoints) GobEncode() ([]byte, error) { return m.MarshalJSON() }

func (m *MaxPoints) GobDecode(b []byte) error { return m.UnmarshalJSON(b) }
