package envvar

const (
	// Prefix is the prefix of the environment variables used by delivery-sugar.
	//
	// The environment variables can be split into two groups:
	// 1. The environment variables for operational settings
	// 2. The coordinates of the change being processed by the pipeline
	//
	// The coordinates override whatever is written in delivery.yaml,
	// so that a build node can export them once per phase run.
	Prefix = "DELIVERY_"

	//
	// Operational settings
	//

	// Config is the path to the delivery.yaml file.
	Config   = Prefix + "CONFIG"
	LogLevel = Prefix + "LOG_LEVEL"

	// KnifeRB is the path to the knife config used to talk to the Chef Server.
	// Defaults to <workspace>/.chef/knife.rb.
	KnifeRB = Prefix + "KNIFE_RB"

	// ReleaseStateFilePath is the path to the YAML file that stores
	// project application releases and version pins.
	//
	// When set, releases are stored locally instead of on the Chef Server.
	// Useful for running pipelines without a Chef Server at hand.
	ReleaseStateFilePath = Prefix + "RELEASE_STATE_FILE_PATH"

	//
	// Workspace
	//

	WorkspacePath  = Prefix + "WORKSPACE_PATH"
	WorkspaceRepo  = Prefix + "WORKSPACE_REPO"
	WorkspaceRoot  = Prefix + "WORKSPACE_ROOT"
	WorkspaceChef  = Prefix + "WORKSPACE_CHEF"
	WorkspaceCache = Prefix + "WORKSPACE_CACHE"
	BuildUser      = Prefix + "BUILD_USER"

	//
	// Change coordinates
	//

	Enterprise     = Prefix + "ENTERPRISE"
	Organization   = Prefix + "ORGANIZATION"
	Project        = Prefix + "PROJECT"
	Pipeline       = Prefix + "PIPELINE"
	Stage          = Prefix + "STAGE"
	Phase          = Prefix + "PHASE"
	PatchsetBranch = Prefix + "PATCHSET_BRANCH"
	ChangeID       = Prefix + "CHANGE_ID"

	// MergeSHA is the merge commit of the change.
	// It is empty until the change has been approved and merged,
	// which is how the post-merge stages are told apart from verify.
	MergeSHA = Prefix + "MERGE_SHA"
)
