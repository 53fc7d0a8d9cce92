package cache

import (
	"testing"
	"time"
)

type codecSample struct {
	Period   string    `json:"period"`
	Received int64     `json:"received"`
	Pending  int64     `json:"pending"`
	Tags     []string  `json:"tags"`
	At       time.Time `json:"at"`
}

func TestCodecs_PreserveValues(t *testing.T) {
	in := codecSample{
		Period:   "2024-01",
		Received: 5000,
		Pending:  1200,
		Tags:     []string{"P1", "P2"},
		At:       time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
	}

	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			data, err := codec.Marshal(in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var out codecSample
			if err := codec.Unmarshal(data, &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if out.Period != in.Period || out.Received != in.Received || out.Pending != in.Pending {
				t.Errorf("decoded %+v, want %+v", out, in)
			}
			if len(out.Tags) != 2 || out.Tags[1] != "P2" {
				t.Errorf("Tags = %v, want %v", out.Tags, in.Tags)
			}
			if !out.At.Equal(in.At) {
				t.Errorf("At = %v, want %v", out.At, in.At)
			}
		})
	}
}

func TestCodecs_RejectGarbage(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgpackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			var out codecSample
			if err := codec.Unmarshal([]byte{0xc1, 0xff, 0x00}, &out); err == nil {
				t.Error("Unmarshal() of garbage should fail")
			}
		})
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: CodecJSON},
		{name: "json", want: CodecJSON},
		{name: "msgpack", want: CodecMsgpack},
		{name: "gob", wantErr: true},
	}

	for _, tt := range tests {
		codec, err := CodecByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("CodecByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err == nil && codec.Name() != tt.want {
			t.Errorf("CodecByName(%q) = %s, want %s", tt.name, codec.Name(), tt.want)
		}
	}
}
