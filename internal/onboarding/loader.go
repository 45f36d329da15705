package onboarding

import (
	"context"
	"errors"
	"fmt"
	"os"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/docstore"
)

// Loader fetches the questionnaire from two sources sharing the same JSON
// shape: a bundled local snapshot and a remote override document.
//
// Precedence is fixed: the remote document, when it fetches and decodes,
// always overrides the bundled copy; the bundled copy is the fallback. The
// prefer_local_first config flag is accepted for compatibility with older
// deployments but does not change the precedence.
type Loader struct {
	store      docstore.Store
	localPath  string
	remotePath string
	log        logger.Logger
}

func NewLoader(store docstore.Store, localPath, remotePath string, log logger.Logger) *Loader {
	return &Loader{
		store:      store,
		localPath:  localPath,
		remotePath: remotePath,
		log:        log.WithFields(map[string]interface{}{"component": "onboarding.loader"}),
	}
}

// Load returns the questionnaire config, or a CONFIG_UNAVAILABLE error when
// neither source yields a valid decode. That error is fatal to session start.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	local, localErr := l.loadLocal()
	if localErr != nil {
		l.log.Warn("bundled questionnaire unusable", map[string]interface{}{
			"path":  l.localPath,
			"error": localErr.Error(),
		})
	}

	remote, remoteErr := l.loadRemote(ctx)
	if remoteErr != nil {
		if !errors.Is(remoteErr, docstore.ErrNotFound) {
			l.log.Warn("remote questionnaire unusable", map[string]interface{}{
				"path":  l.remotePath,
				"error": remoteErr.Error(),
			})
		}
	}

	switch {
	case remote != nil:
		l.log.Info("questionnaire loaded", map[string]interface{}{
			"source":  "remote",
			"version": remote.Version,
		})
		return remote, nil
	case local != nil:
		l.log.Info("questionnaire loaded", map[string]interface{}{
			"source":  "local",
			"version": local.Version,
		})
		return local, nil
	default:
		details := fmt.Sprintf("local: %v; remote: %v", localErr, remoteErr)
		return nil, apperrors.NewConfigUnavailableError(details, errors.Join(localErr, remoteErr))
	}
}

func (l *Loader) loadLocal() (*Config, error) {
	data, err := os.ReadFile(l.localPath)
	if err != nil {
		return nil, fmt.Errorf("read bundled config: %w", err)
	}
	return DecodeConfig(data)
}

func (l *Loader) loadRemote(ctx context.Context) (*Config, error) {
	raw, err := l.store.Get(ctx, l.remotePath)
	if err != nil {
		return nil, err
	}
	return DecodeConfig(raw)
}
