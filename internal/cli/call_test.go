package cli

import "testing"

func TestParseRoomInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare room id",
			input: "misty-otter-harbor-dawn",
			want:  "misty-otter-harbor-dawn",
		},
		{
			name:  "full call link",
			input: "https://peerwave.qzz.io/r/misty-otter-harbor-dawn",
			want:  "misty-otter-harbor-dawn",
		},
		{
			name:  "link with trailing slash",
			input: "https://peerwave.qzz.io/r/misty-otter-harbor-dawn/",
			want:  "misty-otter-harbor-dawn",
		},
		{
			name:    "link without room segment",
			input:   "https://peerwave.qzz.io/about",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRoomInput(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseRoomInput(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRoomInput(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseRoomInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
