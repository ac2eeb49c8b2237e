package config

const (
	DefaultRemote = "origin"

	StageVerify     = "verify"
	StageBuild      = "build"
	StageAcceptance = "acceptance"
	StageUnion      = "union"
	StageRehearsal  = "rehearsal"
	StageDelivered  = "delivered"
)

// Change locates the change being processed in the Delivery hierarchy.
type Change struct {
	Enterprise   string `yaml:"enterprise"`
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`

	// Pipeline is the branch the change targets, e.g. master.
	Pipeline string `yaml:"pipeline"`

	Stage string `yaml:"stage"`
	Phase string `yaml:"phase"`

	// PatchsetBranch is the branch holding the proposed change.
	PatchsetBranch string `yaml:"patchsetBranch"`

	ChangeID string `yaml:"changeID"`

	// MergeSHA is set once the change has been merged into the pipeline branch.
	MergeSHA string `yaml:"mergeSHA,omitempty"`

	// Remote is the git remote both branches are fetched from.
	Remote string `yaml:"remote,omitempty"`
}

func (c *Change) setDefaults() {
	if c.Remote == "" {
		c.Remote = DefaultRemote
	}
}
