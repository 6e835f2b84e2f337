// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package conf

import (
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// LogFile is the planning session log file name
	LogFile = "storage-planner.log"

	// ConfigFile is the committed plan descriptor
	ConfigFile = "storage-planner.yaml"

	// DefaultConfigDir is the system wide default configuration directory
	DefaultConfigDir = "/usr/share/defaults/storage-planner"

	// SourcePath is the source path (within the .gopath)
	SourcePath = "src/github.com/clearlinux/storage-planner"
)

func isRunningFromSourceTree() (bool, string, error) {
	src, err := os.Executable()
	if err != nil {
		return false, src, err
	}
	src, err = filepath.Abs(filepath.Dir(src))
	if err != nil {
		return false, src, err
	}

	return !strings.HasPrefix(src, "/usr/bin"), src, nil
}

func lookupDefaultFile(file string) (string, error) {
	isSourceTree, sourcePath, err := isRunningFromSourceTree()
	if err != nil {
		return "", err
	}

	// use the config from source code's etc dir if not installed binary
	if isSourceTree {
		sourceRoot := strings.Replace(sourcePath, "bin", filepath.Join(SourcePath, "etc"), 1)
		return filepath.Join(sourceRoot, file), nil
	}

	return filepath.Join(DefaultConfigDir, file), nil
}

// LookupDefaultConfig looks up the committed plan descriptor.
// Guesses if we're running from source code or from system: if we're running from
// the source code directory then we load the source default file, otherwise we try
// to load the system installed file
func LookupDefaultConfig() (string, error) {
	return lookupDefaultFile(ConfigFile)
}

// FetchRemoteConfigFile given a config url fetches it from the network. This function
// currently supports only http/https protocol. After success it returns the local file path.
func FetchRemoteConfigFile(url string) (string, error) {
	out, err := ioutil.TempFile("", "storage-planner-yaml-")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = out.Close()
	}()

	resp, err := http.Get(url)
	if err != nil {
		defer func() { _ = os.Remove(out.Name()) }()
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	_, err = io.Copy(out, resp.Body)
	if err != nil {
		defer func() { _ = os.Remove(out.Name()) }()
		return "", err
	}

	return out.Name(), nil
}
