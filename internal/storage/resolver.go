// Package storage resolves artifact destinations on the hierarchical report
// layout and places artifacts with idempotent overwrite semantics.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

const folderPerm = 0755

// Resolver computes artifact destinations and performs placement. One period
// folder per reporting month under the base path; exactly one current file
// per artifact name inside it.
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{logger: logger}
}

// Resolve computes the destination for one artifact. fileNameTemplate may
// carry a {period} placeholder; the {name} placeholder is rendered upstream
// when the artifact is built. The rendered name must be a bare file name.
func (r *Resolver) Resolve(basePath, periodKey, fileNameTemplate string) (models.StoredArtifactLocation, error) {
	var loc models.StoredArtifactLocation

	if strings.TrimSpace(basePath) == "" {
		return loc, &models.StorageError{Kind: models.StorageErrPath, Path: basePath, Err: errors.New("base path is empty")}
	}
	if _, err := models.ParsePeriod(periodKey); err != nil {
		return loc, &models.StorageError{Kind: models.StorageErrPath, Path: basePath, Err: err}
	}

	fileName := strings.ReplaceAll(fileNameTemplate, "{period}", periodKey)
	if err := checkFileName(fileName); err != nil {
		return loc, &models.StorageError{Kind: models.StorageErrPath, Path: basePath, Err: err}
	}

	return models.StoredArtifactLocation{
		BasePath:     basePath,
		PeriodFolder: periodKey,
		FileName:     fileName,
		FullPath:     filepath.Join(basePath, periodKey, fileName),
	}, nil
}

// Place writes the artifact's content at the resolved location. The period
// folder is created if missing; an existing file at the path is deleted and
// replaced. The write goes through a temp file and an atomic rename, so a
// failed run never leaves a truncated artifact behind.
func (r *Resolver) Place(artifact *models.ReportArtifact, loc models.StoredArtifactLocation) error {
	dir := filepath.Dir(loc.FullPath)
	if err := os.MkdirAll(dir, folderPerm); err != nil {
		return storageError(err, dir)
	}

	if err := os.Remove(loc.FullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageError(err, loc.FullPath)
	}

	tmp, err := os.CreateTemp(dir, "."+loc.FileName+".tmp-*")
	if err != nil {
		return storageError(err, dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(artifact.Content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storageError(err, tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storageError(err, tmpName)
	}

	if err := os.Rename(tmpName, loc.FullPath); err != nil {
		os.Remove(tmpName)
		return storageError(err, loc.FullPath)
	}

	r.logger.Info("artifact placed",
		logging.Artifact(artifact.Name),
		logging.Path(loc.FullPath),
	)
	return nil
}

// CheckWritable verifies the base path exists (creating it if needed) and
// accepts writes. Used by validation before a run is scheduled.
func (r *Resolver) CheckWritable(basePath string) error {
	if strings.TrimSpace(basePath) == "" {
		return &models.StorageError{Kind: models.StorageErrPath, Path: basePath, Err: errors.New("base path is empty")}
	}
	if err := os.MkdirAll(basePath, folderPerm); err != nil {
		return storageError(err, basePath)
	}

	probe, err := os.CreateTemp(basePath, ".write-probe-*")
	if err != nil {
		return storageError(err, basePath)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return storageError(err, probe.Name())
	}
	return nil
}

// checkFileName rejects rendered names that would escape the period folder
// or still carry an unresolved placeholder.
func checkFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("file name is empty")
	}
	if strings.ContainsAny(name, "{}") {
		return fmt.Errorf("file name %q has an unresolved placeholder", name)
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("file name %q must be a bare name", name)
	}
	return nil
}

// storageError classifies an os error into the taxonomy.
func storageError(err error, path string) *models.StorageError {
	kind := models.StorageErrIO
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = models.StorageErrPermission
	case errors.Is(err, fs.ErrNotExist):
		kind = models.StorageErrPath
	}
	return &models.StorageError{Kind: kind, Path: path, Err: err}
}
