package infra

import (
	"errors"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "valid",
			query:      "--sql 0b7d2f4e-1c55-4c1b-9b6e-0f4f7a1d2c3b\nselect 1;",
			wantMarker: "0b7d2f4e-1c55-4c1b-9b6e-0f4f7a1d2c3b",
			wantBody:   "select 1;",
		},
		{
			name:       "leading whitespace",
			query:      "\n  --sql 0b7d2f4e-1c55-4c1b-9b6e-0f4f7a1d2c3b\nselect 1;\n",
			wantMarker: "0b7d2f4e-1c55-4c1b-9b6e-0f4f7a1d2c3b",
			wantBody:   "select 1;",
		},
		{name: "missing", query: "select 1;", wantErr: true},
		{name: "uppercase uuid", query: "--sql 0B7D2F4E-1C55-4C1B-9B6E-0F4F7A1D2C3B\nselect 1;", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := ExtractMarker(tc.query)
			if tc.wantErr {
				if !errors.Is(err, ErrMissingMarker) {
					t.Fatalf("err = %v, want ErrMissingMarker", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if marker != tc.wantMarker || body != tc.wantBody {
				t.Fatalf("ExtractMarker = (%q, %q), want (%q, %q)", marker, body, tc.wantMarker, tc.wantBody)
			}
		})
	}
}
