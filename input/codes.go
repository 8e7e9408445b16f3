package input

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"jukebox/controller"
)

// codeFile is the on-disk layout:
//
//	[codes.0004711234]
//	track = "Here Comes the Sun"
//
//	[codes.0004719999]
//	owner = "zdwiggins"
//	playlist = "4m2vrzVCUjvrHzaW00Skli"
type codeFile struct {
	Codes map[string]codeEntry `toml:"codes"`
}

type codeEntry struct {
	Track    string `toml:"track"`
	Owner    string `toml:"owner"`
	Playlist string `toml:"playlist"`
}

// CodeTable maps tag reader codes to actions. It is read once at startup
// and never changes.
type CodeTable struct {
	actions map[string]controller.Action
}

func NewCodeTable(actions map[string]controller.Action) *CodeTable {
	table := &CodeTable{actions: make(map[string]controller.Action, len(actions))}
	for code, action := range actions {
		table.actions[code] = action
	}
	return table
}

// LoadCodes reads the code table at path. A missing file is not an error:
// the reader still runs, it just knows no codes.
func LoadCodes(path string, logger *log.Entry) (*CodeTable, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warnf("code table %s not found, every code will be unknown", path)
			return NewCodeTable(nil), nil
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("code table %s is a directory", path)
	}

	var file codeFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("read code table %s: %w", path, err)
	}
	table, err := file.table()
	if err != nil {
		return nil, fmt.Errorf("read code table %s: %w", path, err)
	}
	logger.Debugf("loaded %d codes from %s", table.Len(), path)
	return table, nil
}

// ParseCodes reads a code table from TOML text.
func ParseCodes(data string) (*CodeTable, error) {
	var file codeFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, err
	}
	return file.table()
}

func (f codeFile) table() (*CodeTable, error) {
	actions := make(map[string]controller.Action, len(f.Codes))
	for code, entry := range f.Codes {
		action, err := entry.action()
		if err != nil {
			return nil, fmt.Errorf("code %s: %w", code, err)
		}
		actions[code] = action
	}
	return &CodeTable{actions: actions}, nil
}

func (e codeEntry) action() (controller.Action, error) {
	hasTrack := e.Track != ""
	hasPlaylist := e.Owner != "" || e.Playlist != ""
	switch {
	case hasTrack && hasPlaylist:
		return controller.Action{}, errors.New("set either track or owner and playlist, not both")
	case hasTrack:
		return controller.TrackAction(e.Track), nil
	case e.Owner != "" && e.Playlist != "":
		return controller.PlaylistAction(e.Owner, e.Playlist), nil
	case hasPlaylist:
		return controller.Action{}, errors.New("a playlist needs both owner and playlist")
	default:
		return controller.Action{}, errors.New("no track or playlist")
	}
}

// Lookup returns the action for code, or an ActionUnknown action.
func (t *CodeTable) Lookup(code string) controller.Action {
	if action, ok := t.actions[code]; ok {
		return action
	}
	return controller.Action{Type: controller.ActionUnknown}
}

func (t *CodeTable) Len() int {
	return len(t.actions)
}

func (t *CodeTable) Codes() []string {
	codes := make([]string, 0, len(t.actions))
	for code := range t.actions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
