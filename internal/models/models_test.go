package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestEmbeddedModelsUseBaseBeforeCreate(t *testing.T) {
	cases := []struct {
		name  string
		model func() *BaseModel
	}{
		{"role", func() *BaseModel {
			r := &Role{}
			return &r.BaseModel
		}},
		{"permission", func() *BaseModel {
			p := &Permission{}
			return &p.BaseModel
		}},
		{"parish", func() *BaseModel {
			p := &Parish{}
			return &p.BaseModel
		}},
		{"membership", func() *BaseModel {
			m := &ParishMembership{}
			return &m.BaseModel
		}},
		{"override", func() *BaseModel {
			o := &PermissionOverride{}
			return &o.BaseModel
		}},
		{"record access", func() *BaseModel {
			e := &RecordAccessEntry{}
			return &e.BaseModel
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := tc.model()
			if err := base.BeforeCreate(nil); err != nil {
				t.Fatalf("before create: %v", err)
			}
			if base.ID == "" {
				t.Fatal("expected generated ID")
			}
		})
	}
}

func TestAccessLevelValid(t *testing.T) {
	for _, level := range []AccessLevel{AccessFull, AccessReadOnly, AccessLimited} {
		if !level.Valid() {
			t.Fatalf("expected %q to be valid", level)
		}
	}
	if AccessLevel("partial").Valid() {
		t.Fatal("unexpected valid level")
	}
}
