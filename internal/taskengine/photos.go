package taskengine

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"taskdesk/internal/models"
)

// proofRoot holds every proof photo, one directory per company and task.
const proofRoot = "/proofs/"

// ProofDir is the directory, relative to the file root, that the task's
// proof photos must live in: /proofs/<company_id>/<task_id>/.
func ProofDir(t models.Task) string {
	return fmt.Sprintf("%s%d/%d/", proofRoot, t.CompanyID, t.ID)
}

// refPath reduces a reference to a cleaned absolute path. Only the path of a URL counts.
func refPath(ref string) string {
	p := strings.TrimSpace(ref)
	if u, err := url.Parse(p); err == nil && u.Scheme != "" {
		p = u.Path
	}
	return path.Clean("/" + p)
}

// OwnsProof reports whether ref names a file inside the task's proof directory.
func OwnsProof(t models.Task, ref string) bool {
	dir := ProofDir(t)
	p := refPath(ref)
	return strings.HasPrefix(p, dir) && len(p) > len(dir)
}

// IsProofRef reports whether ref points anywhere into the proof tree.
// Example photos must stay outside of it so no proof removal can reach them.
func IsProofRef(ref string) bool {
	return strings.HasPrefix(refPath(ref)+"/", proofRoot)
}
