package cli

import (
	"fmt"

	"github.com/framework-cg/pgload/internal/config"
	"github.com/framework-cg/pgload/internal/params"
	"github.com/framework-cg/pgload/internal/transform"
)

// loadTransformParams merges transform parameters from every source.
// Priority (highest to lowest): --param > --params-file (later files win) > pgload.yaml
func loadTransformParams(projectCfg *config.ProjectConfig, paramsFiles, cliPairs []string) (transform.Params, error) {
	merged := transform.Params{}
	if projectCfg != nil {
		for k, v := range projectCfg.Transforms.Params {
			merged[k] = v
		}
	}

	fileParams := make([]map[string]string, 0, len(paramsFiles))
	for _, path := range paramsFiles {
		p, err := params.LoadEnvFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load params file '%s': %w\n\nTip: Verify the file format (KEY=VALUE)", path, err)
		}
		fileParams = append(fileParams, p)
	}

	cliParams, err := params.ParseKeyValuePairs(cliPairs)
	if err != nil {
		return nil, fmt.Errorf("invalid parameter format: %w", err)
	}

	for k, v := range transform.FromStrings(params.Merge(nil, append(fileParams, cliParams)...)) {
		merged[k] = v
	}
	return merged, nil
}
