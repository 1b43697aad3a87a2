package main

import (
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/config"
	"github.com/wbrown/piecewise/metrics"
	"github.com/wbrown/piecewise/resources"
)

// loadedModel bundles a model with the segmenter stack built on it.
type loadedModel struct {
	model     *resources.Model
	vocab     *piecewise.Vocabulary
	segmenter piecewise.Segmenter
	// cache is nil when caching is disabled.
	cache *piecewise.CachedEncoder
}

func (lm *loadedModel) Close() error {
	return lm.model.Close()
}

// loadModel resolves cfg.Model.Path, downloading it if needed, and builds an
// instrumented and optionally cached encoder over it. The sentinel codes come
// from the model file.
func loadModel(cfg config.Config) (*loadedModel, error) {
	resolver := &resources.Resolver{Dir: cfg.Model.Dir, Auth: cfg.Model.Auth}
	path, err := resolver.Resolve(cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	model, err := resources.LoadModel(path)
	if err != nil {
		return nil, err
	}
	encoder, err := model.NewEncoder()
	if err != nil {
		model.Close()
		return nil, err
	}

	lm := &loadedModel{model: model, vocab: model.Vocabulary()}
	var segmenter piecewise.Segmenter = encoder
	if cfg.Cache.Enabled {
		lm.cache, err = piecewise.NewCachedEncoder(encoder, cfg.Cache.Size)
		if err != nil {
			model.Close()
			return nil, err
		}
		segmenter = lm.cache
	}
	lm.segmenter = metrics.Instrumented(segmenter)
	return lm, nil
}
