package database

import (
	"reflect"
	"testing"

	"olh/internal/domain"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"calculus", "calculus"},
		{"100%", `100\%`},
		{"unit_1", `unit\_1`},
		{`a\b`, `a\\b`},
		{`%_\`, `\%\_\\`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := escapeLike(tt.in); got != tt.want {
				t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMaterialFilterWhere(t *testing.T) {
	tests := []struct {
		name     string
		filter   MaterialFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:   "empty",
			filter: MaterialFilter{},
		},
		{
			name:     "status only",
			filter:   MaterialFilter{Status: domain.StatusApproved},
			wantSQL:  " WHERE m.verification_status = $1",
			wantArgs: []any{"approved"},
		},
		{
			name:     "reported takes no argument",
			filter:   MaterialFilter{Reported: true, Status: domain.StatusApproved},
			wantSQL:  " WHERE m.verification_status = $1 AND EXISTS (SELECT 1 FROM material_reports r WHERE r.material_id = m.id)",
			wantArgs: []any{"approved"},
		},
		{
			name: "placeholders follow argument order",
			filter: MaterialFilter{
				Status:         domain.StatusApproved,
				FavoritedBy:    "u1",
				Subject:        "Physics",
				RegulationYear: domain.Regulation2023,
				MaterialType:   domain.TypeNotes,
			},
			wantSQL: " WHERE m.verification_status = $1" +
				" AND EXISTS (SELECT 1 FROM material_favorites f WHERE f.material_id = m.id AND f.user_id = $2)" +
				" AND m.subject = $3 AND m.regulation_year = $4 AND m.material_type = $5",
			wantArgs: []any{"approved", "u1", "Physics", "2023", "notes"},
		},
		{
			name:     "uploader",
			filter:   MaterialFilter{UploadedBy: "u2"},
			wantSQL:  " WHERE m.uploaded_by = $1",
			wantArgs: []any{"u2"},
		},
		{
			name:     "query is trimmed and wrapped",
			filter:   MaterialFilter{Query: "  thermo  "},
			wantSQL:  " WHERE m.title ILIKE $1",
			wantArgs: []any{"%thermo%"},
		},
		{
			name:     "query wildcards are literal",
			filter:   MaterialFilter{Query: "100%_done"},
			wantSQL:  " WHERE m.title ILIKE $1",
			wantArgs: []any{`%100\%\_done%`},
		},
		{
			name:   "blank query is ignored",
			filter: MaterialFilter{Query: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.filter.where()
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if len(args) != len(tt.wantArgs) || (len(args) > 0 && !reflect.DeepEqual(args, tt.wantArgs)) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
