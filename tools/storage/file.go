package storage

import (
	"os"
	"path/filepath"

	"gitlab.com/videotom/transcode-worker/config"
	"gitlab.com/videotom/transcode-worker/pkg/errs"
	"gitlab.com/videotom/transcode-worker/pkg/logger"
)

// Workspace manages the local working directories: the shared input base
// path, a per-job output directory under it, and cleanup once a job's
// artifacts are safely uploaded.
type Workspace struct {
	cfg *config.Config
	log logger.Logger
}

// NewWorkspace ...
func NewWorkspace(cfg *config.Config, log logger.Logger) *Workspace {
	return &Workspace{cfg: cfg, log: log}
}

// EnsureWorkspace idempotently creates the input base path and output
// root with read/write permissions. Called once at startup, and again
// defensively per job.
func (w *Workspace) EnsureWorkspace() error {
	if w.cfg.AssetsBasePath == "" {
		err := errs.New(errs.CodeConfigInvalid, "ASSETS_BASE_PATH is not present in the config")
		w.log.Error("workspace configuration invalid",
			logger.String("code", errs.CodeConfigInvalid),
			logger.Error(err),
		)
		return err
	}

	if err := createDirWithReadWritePerm(w.cfg.AssetsBasePath); err != nil {
		return errs.Wrap(errs.CodeIOFailed, "cannot create input path "+w.cfg.AssetsBasePath, err)
	}
	outputRoot := filepath.Join(w.cfg.AssetsBasePath, w.cfg.OutputDirName)
	if err := createDirWithReadWritePerm(outputRoot); err != nil {
		return errs.Wrap(errs.CodeIOFailed, "cannot create output path "+outputRoot, err)
	}

	return nil
}

// InputDir is the shared directory downloads land in.
func (w *Workspace) InputDir() string {
	return w.cfg.AssetsBasePath
}

// OutputPathFor returns the job's output directory, creating it if
// needed. RequestId namespacing keeps concurrent jobs from contending.
func (w *Workspace) OutputPathFor(requestId string) (string, error) {
	outputPath := filepath.Join(w.cfg.AssetsBasePath, w.cfg.OutputDirName, requestId)
	if err := createDirWithReadWritePerm(outputPath); err != nil {
		return "", errs.Wrap(errs.CodeIOFailed, "cannot create job output path "+outputPath, err)
	}
	return outputPath, nil
}

// Cleanup removes each path best effort: it keeps going past individual
// failures and returns true only when everything was deleted. Failures
// here never fail the job, the uploaded results stand.
func (w *Workspace) Cleanup(paths []string, requestId string) bool {
	ok := true
	for _, p := range paths {
		if _, err := os.Lstat(p); err != nil {
			w.log.Error("failed to delete working path",
				logger.String("code", errs.CodeIOFailed),
				logger.String("path", p),
				logger.String("request_id", requestId),
				logger.Error(err),
			)
			ok = false
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			w.log.Error("failed to delete working path",
				logger.String("code", errs.CodeIOFailed),
				logger.String("path", p),
				logger.String("request_id", requestId),
				logger.Error(err),
			)
			ok = false
		}
	}

	if ok {
		w.log.Info("deleted working files",
			logger.String("request_id", requestId),
			logger.Any("paths", paths),
		)
	}
	return ok
}

func createDirWithReadWritePerm(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0766); err != nil {
			return err
		}
	}
	return os.Chmod(path, 0766)
}
