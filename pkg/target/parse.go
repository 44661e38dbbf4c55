// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package target

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies an input file format.
type Format string

const (
	FormatNessus Format = "nessus"
	FormatNmap   Format = "nmap"
	FormatList   Format = "list"
)

// nessusTLSPluginID is the Nessus "SSL / TLS Versions Supported" plugin.
const nessusTLSPluginID = "56984"

// nmapTLSServices are nmap service names that carry TLS. Running nmap
// with -sV makes these names reliable.
var nmapTLSServices = []string{"https", "ssl", "ms-wbt-server"}

var (
	// ErrUnknownFormat is returned for an unsupported input format.
	ErrUnknownFormat = errors.New("unknown input format")

	// ErrNoInput is returned when no input files were supplied or matched.
	ErrNoInput = errors.New("no input files")
)

// Formats lists the supported input formats.
func Formats() []Format {
	return []Format{FormatNessus, FormatNmap, FormatList}
}

// ParseFiles reads every file in the given format and returns the
// deduplicated target set. Patterns containing '*' are glob-expanded, for
// shells that pass wildcards through unexpanded.
func ParseFiles(format Format, patterns []string) (Set, error) {
	files, err := expand(patterns)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoInput
	}

	set := NewSet()
	for _, path := range files {
		targets, err := parseFile(format, path)
		if err != nil {
			return nil, err
		}
		set.Add(targets...)
	}
	return set, nil
}

func parseFile(format Format, path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	var targets []Target
	switch format {
	case FormatNessus:
		targets, err = ParseNessus(f)
	case FormatNmap:
		targets, err = ParseNmap(f)
	case FormatList:
		targets, err = ParseList(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s input %s: %w", format, path, err)
	}
	return targets, nil
}

func expand(patterns []string) ([]string, error) {
	var files []string
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !strings.Contains(p, "*") {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", p, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

type nessusReport struct {
	Hosts []struct {
		Name  string `xml:"name,attr"`
		Items []struct {
			PluginID string `xml:"pluginID,attr"`
			Port     string `xml:"port,attr"`
		} `xml:"ReportItem"`
	} `xml:"Report>ReportHost"`
}

// ParseNessus extracts host:port pairs that Nessus flagged as TLS services.
func ParseNessus(r io.Reader) ([]Target, error) {
	var report nessusReport
	if err := xml.NewDecoder(r).Decode(&report); err != nil {
		return nil, err
	}

	var out []Target
	for _, host := range report.Hosts {
		for _, item := range host.Items {
			if item.PluginID != nessusTLSPluginID {
				continue
			}
			out = append(out, New(host.Name+":"+item.Port))
		}
	}
	return out, nil
}

type nmapRun struct {
	Hosts []struct {
		Addresses []struct {
			Addr string `xml:"addr,attr"`
		} `xml:"address"`
		Ports []struct {
			PortID string `xml:"portid,attr"`
			State  struct {
				State string `xml:"state,attr"`
			} `xml:"state"`
			Service struct {
				Name string `xml:"name,attr"`
			} `xml:"service"`
		} `xml:"ports>port"`
	} `xml:"host"`
}

// ParseNmap extracts addr:port pairs for open ports running a TLS service.
func ParseNmap(r io.Reader) ([]Target, error) {
	var run nmapRun
	if err := xml.NewDecoder(r).Decode(&run); err != nil {
		return nil, err
	}

	var out []Target
	for _, host := range run.Hosts {
		if len(host.Addresses) == 0 {
			continue
		}
		addr := host.Addresses[0].Addr
		for _, port := range host.Ports {
			if port.State.State != "open" || !isTLSService(port.Service.Name) {
				continue
			}
			out = append(out, New(addr+":"+port.PortID))
		}
	}
	return out, nil
}

func isTLSService(name string) bool {
	for _, svc := range nmapTLSServices {
		if strings.Contains(name, svc) {
			return true
		}
	}
	return false
}

// ParseList reads one target per line. Blank lines and '#' comments are skipped.
func ParseList(r io.Reader) ([]Target, error) {
	var out []Target
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, New(line))
	}
	return out, sc.Err()
}
