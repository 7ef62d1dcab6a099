package transcriber

import (
	"errors"
	"testing"
)

func TestBlankLineParser(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "payload isolated by blank lines",
			output: "model info\nloading\n\nHello world\n\ntiming: 1.2s\n",
			want:   "Hello world",
		},
		{
			name:   "payload with surrounding spaces trimmed",
			output: "\n   Hello   \n\n",
			want:   "Hello",
		},
		{
			name:   "whitespace-only separator lines count as blank",
			output: "info\n  \nHello\n\t\ndone\n",
			want:   "Hello",
		},
		{
			name:    "no blank line separation",
			output:  "line one\nline two\nline three\n",
			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
		{
			name:    "only blank lines",
			output:  "\n\n\n",
			wantErr: true,
		},
		{
			name:    "trailing payload without blank line below",
			output:  "Hello\n\nmore",
			wantErr: true,
		},
		{
			name:   "first isolated line wins",
			output: "\nfirst\n\nsecond\n\n",
			want:   "first",
		},
	}

	parser := BlankLineParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.Parse(tt.output)
			if tt.wantErr {
				if !errors.Is(err, ErrNoTranscript) {
					t.Errorf("Parse error = %v, want ErrNoTranscript", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse = %q, want %q", got, tt.want)
			}
		})
	}
}
