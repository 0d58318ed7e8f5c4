// Package loader populates a content registry from a content directory.
// Units are discovered by naming convention: one JSON document per file,
// rooms under rooms/, battles under battles/, items under items/, and the
// two asset registries under assets/. The filename (without .json) is the
// unit's id.
//
// Authoring problems (duplicate ids, malformed documents, bad id format)
// are accumulated as validator issues so a validate run reports everything
// in one pass; only I/O failures abort the load.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/levelkit/textquest/internal/validator"
	"github.com/levelkit/textquest/pkg/content"
)

const (
	roomsDir   = "rooms"
	battlesDir = "battles"
	itemsDir   = "items"
	assetsDir  = "assets"
)

// Unit ids are lowercase snake_case.
var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// Load scans the content directory and returns the populated registry plus
// any authoring issues found while registering units.
func Load(dir string, logger *slog.Logger) (*content.Registry, []validator.Issue, error) {
	reg := content.NewRegistry()
	var issues []validator.Issue

	err := walkUnits(filepath.Join(dir, roomsDir), func(id string, data []byte) {
		var room content.RoomSpec
		if issue := decodeUnit(id, data, &room); issue != nil {
			issues = append(issues, *issue)
			return
		}
		if issue := bindID(id, &room.ID); issue != nil {
			issues = append(issues, *issue)
			return
		}
		var dup *content.DuplicateIDError
		if err := reg.AddRoom(&room); errors.As(err, &dup) {
			issues = append(issues, duplicateIssue(dup))
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan rooms: %w", err)
	}

	err = walkUnits(filepath.Join(dir, battlesDir), func(id string, data []byte) {
		var battle content.BattleSpec
		if issue := decodeUnit(id, data, &battle); issue != nil {
			issues = append(issues, *issue)
			return
		}
		if issue := bindID(id, &battle.ID); issue != nil {
			issues = append(issues, *issue)
			return
		}
		var dup *content.DuplicateIDError
		if err := reg.AddBattle(&battle); errors.As(err, &dup) {
			issues = append(issues, duplicateIssue(dup))
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan battles: %w", err)
	}

	err = walkUnits(filepath.Join(dir, itemsDir), func(id string, data []byte) {
		var item content.ItemSpec
		if issue := decodeUnit(id, data, &item); issue != nil {
			issues = append(issues, *issue)
			return
		}
		if issue := bindID(id, &item.ID); issue != nil {
			issues = append(issues, *issue)
			return
		}
		var dup *content.DuplicateIDError
		if err := reg.AddItem(&item); errors.As(err, &dup) {
			issues = append(issues, duplicateIssue(dup))
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan items: %w", err)
	}

	assetIssues, err := loadAssets(dir, reg, logger)
	if err != nil {
		return nil, nil, err
	}
	issues = append(issues, assetIssues...)

	logger.Debug("content loaded",
		"rooms", len(reg.Rooms()),
		"battles", len(reg.Battles()),
		"items", len(reg.Items()),
		"issues", len(issues))
	return reg, issues, nil
}

// walkUnits calls fn with the derived id and raw bytes of every .json file
// under dir. A missing directory is not an error: content bundles may omit
// whole namespaces.
func walkUnits(dir string, fn func(id string, data []byte)) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(filepath.Base(path), ".json")
		fn(id, data)
		return nil
	})
}

// decodeUnit strictly decodes one unit document; unknown fields are
// authoring errors.
func decodeUnit(id string, data []byte, v any) *validator.Issue {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return &validator.Issue{
			Kind:    validator.KindMalformedUnit,
			OwnerID: id,
			Detail:  err.Error(),
		}
	}
	return nil
}

// bindID fills the unit id from the filename, or flags a mismatch when the
// document declares a different one. The filename wins as the discovery key,
// so a mismatch is always an authoring error.
func bindID(fileID string, specID *string) *validator.Issue {
	if !validIDRegex.MatchString(fileID) {
		return &validator.Issue{
			Kind:    validator.KindMalformedUnit,
			OwnerID: fileID,
			Detail:  "id must be lowercase snake_case",
		}
	}
	if *specID != "" && *specID != fileID {
		return &validator.Issue{
			Kind:    validator.KindMalformedUnit,
			OwnerID: fileID,
			Ref:     *specID,
			Detail:  "declared id does not match filename",
		}
	}
	*specID = fileID
	return nil
}

func duplicateIssue(err *content.DuplicateIDError) validator.Issue {
	return validator.Issue{
		Kind:    validator.KindDuplicateID,
		OwnerID: err.ID,
		Detail:  fmt.Sprintf("duplicate id in %s namespace", err.Namespace),
	}
}

// loadAssets reads the flat image and sound registries. Missing registry
// files mean empty registries; any key referenced by a room then surfaces
// as a validator issue.
func loadAssets(dir string, reg *content.Registry, logger *slog.Logger) ([]validator.Issue, error) {
	var issues []validator.Issue

	load := func(name string, add func(key, path string) error) error {
		path := filepath.Join(dir, assetsDir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			logger.Debug("asset registry not present", "path", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read asset registry %s: %w", name, err)
		}
		var mapping map[string]string
		if err := json.Unmarshal(data, &mapping); err != nil {
			issues = append(issues, validator.Issue{
				Kind:    validator.KindMalformedUnit,
				OwnerID: name,
				Detail:  err.Error(),
			})
			return nil
		}
		for key, p := range mapping {
			var dup *content.DuplicateIDError
			if err := add(key, p); errors.As(err, &dup) {
				issues = append(issues, duplicateIssue(dup))
			}
		}
		return nil
	}

	if err := load("images.json", reg.AddImage); err != nil {
		return nil, err
	}
	if err := load("sounds.json", reg.AddSound); err != nil {
		return nil, err
	}
	return issues, nil
}
