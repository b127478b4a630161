package store

import "testing"

func TestMigrateUpDown(t *testing.T) {
	s := openTestStore(t)
	fsys := MigrationsFS()

	if err := s.MigrateUp(fsys); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	version, dirty, err := s.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", version, dirty)
	}

	// Already at the latest version; must tolerate the no-op.
	if err := s.MigrateUp(fsys); err != nil {
		t.Fatalf("repeated MigrateUp failed: %v", err)
	}

	if err := s.MigrateDown(fsys); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, dirty, err = s.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion after down failed: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("version = %d dirty = %v, want 0 clean", version, dirty)
	}

	if err := s.MigrateUp(fsys); err != nil {
		t.Fatalf("MigrateUp after down failed: %v", err)
	}
}

func TestMigratedSchemaUsable(t *testing.T) {
	s := openTestStore(t)

	if err := s.MigrateUp(MigrationsFS()); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	f := testCircuit().File()
	created, err := s.CreateSession("post-migration", []byte("x"), f)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := s.GetSession(created.ID); err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
}

func TestMigrateForce(t *testing.T) {
	s := openTestStore(t)
	fsys := MigrationsFS()

	if err := s.MigrateUp(fsys); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if err := s.MigrateForce(fsys, 1); err != nil {
		t.Fatalf("MigrateForce failed: %v", err)
	}
	version, dirty, err := s.MigrateVersion(fsys)
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", version, dirty)
	}
}
