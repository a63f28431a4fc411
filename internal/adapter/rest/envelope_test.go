package rest

import "testing"

func TestDecodeList(t *testing.T) {
	type item struct {
		ID string `json:"id"`
	}

	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{name: "bare array", body: `[{"id":"a"},{"id":"b"}]`, wantLen: 2},
		{name: "enveloped data", body: `{"data":[{"id":"a"}],"meta":{"total":50}}`, wantLen: 1},
		{name: "empty bare array", body: `[]`, wantLen: 0},
		{name: "empty enveloped", body: `{"data":[]}`, wantLen: 0},
		{name: "object without data field", body: `{"meta":{"total":3}}`, wantErr: true},
		{name: "not json", body: `oops`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []item
			err := DecodeList([]byte(tt.body), &items)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(items) != tt.wantLen {
				t.Errorf("decoded %d items, want %d", len(items), tt.wantLen)
			}
		})
	}
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "meta total wins", body: `{"data":[{},{}],"meta":{"total":120}}`, want: 120},
		{name: "meta total zero is honored", body: `{"data":[{}],"meta":{"total":0}}`, want: 0},
		{name: "enveloped falls back to data length", body: `{"data":[{},{},{}]}`, want: 3},
		{name: "bare array length", body: `[{},{}]`, want: 2},
		{name: "empty bare array", body: `[]`, want: 0},
		{name: "object with neither", body: `{"ok":true}`, want: 0},
		{name: "malformed body", body: `{{`, want: 0},
		{name: "non-array data", body: `{"data":{"id":"a"}}`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Total([]byte(tt.body)); got != tt.want {
				t.Errorf("Total() = %d, want %d", got, tt.want)
			}
		})
	}
}
