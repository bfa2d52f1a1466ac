package main

import "testing"

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"collapse", "false"},
		{"show-title", "true"},
		{"upset", ""},
		{"cnet", ""},
		{"sort", "fdr"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := rootCmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not defined", tt.flag)
			}
			if f.DefValue != tt.want {
				t.Errorf("--%s default = %q, want %q", tt.flag, f.DefValue, tt.want)
			}
		})
	}
}
