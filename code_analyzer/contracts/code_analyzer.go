package contracts

import "github.com/meysamhadeli/dafc/code_analyzer/models"

type IContextAssembler interface {
	GatherContext(rootDir string) (*models.ProjectContext, error)
}
