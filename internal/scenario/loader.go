package scenario

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wifiprov/wifiprov-go/pkg/provisioning"
	"github.com/wifiprov/wifiprov-go/pkg/wifi"
)

// Parse parses and validates a scenario from YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if sc.ID == "" {
		return nil, &LoadError{Message: "scenario id is required"}
	}
	if len(sc.Steps) == 0 {
		return nil, &LoadError{Message: "scenario must have at least one step"}
	}
	for i, st := range sc.Steps {
		if err := validateStep(st); err != nil {
			return nil, &LoadError{Step: i + 1, Message: err.Error()}
		}
	}
	return &sc, nil
}

func validateStep(st Step) error {
	if !knownActions[st.Action] {
		return fmt.Errorf("unknown action %q", st.Action)
	}
	switch st.Action {
	case ActionSend:
		if st.Command == nil {
			return errors.New("send needs a command")
		}
		if _, err := st.Command.build(); err != nil {
			return err
		}
	case ActionSendRaw:
		if len(st.Chunks) == 0 {
			return errors.New("send_raw needs chunks")
		}
		for _, c := range st.Chunks {
			if _, err := hex.DecodeString(c); err != nil {
				return fmt.Errorf("chunk %q is not hex", c)
			}
		}
	case ActionExpectStatus, ActionReadStatus:
		if _, ok := parseStatus(st.Status); !ok {
			return fmt.Errorf("unknown status %q", st.Status)
		}
	case ActionExpectMessages:
		if len(st.Messages) == 0 {
			return errors.New("expect_messages needs messages")
		}
		for _, m := range st.Messages {
			switch m.Type {
			case "ap_details", "sys_info", "ip_config":
			default:
				return fmt.Errorf("unknown message type %q", m.Type)
			}
		}
	case ActionWait, ActionExpectNoMessage:
		if st.Duration <= 0 {
			return fmt.Errorf("%s needs a positive duration", st.Action)
		}
	}
	return nil
}

func parseStatus(name string) (provisioning.State, bool) {
	for s := provisioning.StateIdle; s <= provisioning.StateConnectFailed; s++ {
		if strings.EqualFold(s.String(), name) {
			return s, true
		}
	}
	return 0, false
}

func parseSecurity(name string) (wifi.Security, bool) {
	if name == "" {
		return wifi.SecurityOpen, true
	}
	return wifi.ParseSecurity(name)
}

// LoadFile loads a scenario from a file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	sc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return sc, nil
}

// LoadDirectory loads every .yaml or .yml file in dir, sorted by file name.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		sc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
