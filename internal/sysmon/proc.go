package sysmon

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// readMemInfo returns total and available memory in bytes.
func readMemInfo(procRoot string) (total, available uint64, err error) {
	f, err := os.Open(filepath.Join(procRoot, "meminfo"))
	if err != nil {
		return 0, 0, fmt.Errorf("open meminfo: %w", err)
	}
	defer f.Close()

	var memFree, buffers, cached uint64
	haveAvailable := false

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, parseErr := strconv.ParseUint(fields[1], 10, 64)
		if parseErr != nil {
			continue
		}
		// Values are reported in kB.
		switch fields[0] {
		case "MemTotal:":
			total = value * 1024
		case "MemAvailable:":
			available = value * 1024
			haveAvailable = true
		case "MemFree:":
			memFree = value * 1024
		case "Buffers:":
			buffers = value * 1024
		case "Cached:":
			cached = value * 1024
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, 0, fmt.Errorf("scan meminfo: %w", err)
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("meminfo missing MemTotal")
	}
	if !haveAvailable {
		// Older kernels lack MemAvailable; approximate it.
		available = memFree + buffers + cached
	}
	return total, available, nil
}

// readLoadAvg returns the 1, 5, and 15 minute load averages.
func readLoadAvg(procRoot string) (load1, load5, load15 float64, err error) {
	data, err := os.ReadFile(filepath.Join(procRoot, "loadavg"))
	if err != nil {
		return 0, 0, 0, fmt.Errorf("read loadavg: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("loadavg malformed: %q", strings.TrimSpace(string(data)))
	}
	if load1, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("parse loadavg: %w", err)
	}
	if load5, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("parse loadavg: %w", err)
	}
	if load15, err = strconv.ParseFloat(fields[2], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("parse loadavg: %w", err)
	}
	return load1, load5, load15, nil
}

// cpuSample is one reading of the aggregate cpu line in /proc/stat.
type cpuSample struct {
	idle  uint64
	total uint64
}

func readCPUSample(procRoot string) (cpuSample, error) {
	f, err := os.Open(filepath.Join(procRoot, "stat"))
	if err != nil {
		return cpuSample{}, fmt.Errorf("open stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 || fields[0] != "cpu" {
			continue
		}
		var sample cpuSample
		for i, field := range fields[1:] {
			value, parseErr := strconv.ParseUint(field, 10, 64)
			if parseErr != nil {
				return cpuSample{}, fmt.Errorf("parse stat field %q: %w", field, parseErr)
			}
			sample.total += value
			// idle is the 4th column, iowait the 5th.
			if i == 3 || i == 4 {
				sample.idle += value
			}
		}
		return sample, nil
	}
	if err := scanner.Err(); err != nil {
		return cpuSample{}, fmt.Errorf("scan stat: %w", err)
	}
	return cpuSample{}, fmt.Errorf("stat missing aggregate cpu line")
}

// cpuPercentBetween converts two samples into a busy percentage.
func cpuPercentBetween(prev, cur cpuSample) float64 {
	if cur.total <= prev.total {
		return 0
	}
	deltaTotal := float64(cur.total - prev.total)
	deltaIdle := float64(cur.idle - prev.idle)
	percent := (1 - deltaIdle/deltaTotal) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
