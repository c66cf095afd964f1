package earlyinit

import "testing"

func TestHasForeground(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"nil args", nil, false},
		{"empty args", []string{}, false},
		{"only program name", []string{"galley"}, false},
		{"foreground present", []string{"galley", "--foreground"}, true},
		{"foreground after other flags", []string{"galley", "start", "--port", "9191", "--foreground"}, true},
		{"foreground first", []string{"galley", "--foreground", "--port", "9191"}, true},
		{"no foreground", []string{"galley", "start", "--port", "9191"}, false},
		{"double dash stops scan", []string{"galley", "--", "--foreground"}, false},
		{"foreground before double dash", []string{"galley", "--foreground", "--", "extra"}, true},
		{"similar but wrong flag", []string{"galley", "--foregrounds"}, false},
		{"bare word not matched", []string{"galley", "foreground"}, false},
		{"flag with equals not matched", []string{"galley", "--foreground=true"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasForeground(tt.args); got != tt.want {
				t.Errorf("HasForeground(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
