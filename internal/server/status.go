package server

import (
	"context"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Status is a point-in-time snapshot of the supervised server.
type Status struct {
	Running    bool
	Session    string
	Dir        string
	Jar        string
	DirSize    int64
	CPUPercent string
	MemPercent string
	Uptime     string
}

// Status gathers liveness, directory size, and, when the server is up,
// process statistics for the java process. Every lookup degrades silently:
// a status display must never fail.
func (s *Supervisor) Status() Status {
	st := Status{
		Running: s.Running(),
		Session: s.cfg.SessionName,
		Dir:     s.cfg.Dir,
		Jar:     s.cfg.Jar,
		DirSize: directorySize(s.cfg.Dir),
	}
	if st.Running {
		st.CPUPercent, st.MemPercent, st.Uptime = processStats(s.cfg.Jar)
	}
	return st
}

// directorySize totals the file sizes under root, skipping anything
// unreadable.
func directorySize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func commandOutput(name string, args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// processStats looks up the java process running jar and reads its CPU,
// memory, and elapsed time from ps.
func processStats(jar string) (cpu, mem, uptime string) {
	pids := commandOutput("pgrep", "-f", jar)
	if pids == "" {
		return "", "", ""
	}
	pid := strings.Fields(pids)[0]
	psOut := commandOutput("ps", "-p", pid, "-o", "%cpu,%mem,etime", "--no-headers")
	fields := strings.Fields(psOut)
	if len(fields) < 3 {
		return "", "", ""
	}
	return fields[0], fields[1], strings.Join(fields[2:], " ")
}
