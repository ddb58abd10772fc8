package indexactor

import (
	"strings"

	"github.com/fsindex/fsindex/internal/slab"
)

// TreeNode is a deep-copied, read-only view of one tree node and its
// descendants, returned by Snapshot so a caller (the tree CLI
// subcommand) can render it without ever touching the actor's live
// tree directly.
type TreeNode struct {
	Name     string
	IsDir    bool
	Children []TreeNode
}

type snapshotJob struct {
	maxDepth int
	reply    chan TreeNode
}

// Snapshot returns a deep copy of the indexed tree rooted at the
// actor's root, down to maxDepth levels (maxDepth <= 0 means
// unlimited). Unlike Search, this bypasses the query engine entirely:
// it exists for the tree CLI subcommand, which wants the whole
// hierarchy rather than a lexicographically sorted, max_results-capped
// result list.
func (a *Actor) Snapshot(maxDepth int) (TreeNode, error) {
	reply := make(chan TreeNode, 1)
	select {
	case a.snapshotCh <- snapshotJob{maxDepth: maxDepth, reply: reply}:
	case <-a.doneCh:
		return TreeNode{}, nil
	}
	return <-reply, nil
}

// executeSnapshot runs inside the actor goroutine, so reading a.tree
// here needs no synchronization. The copy starts at the indexed root's
// node, not the slab root: the tree is ancestor-wrapped back to "/",
// and a caller asking for the tree of /home/user/docs wants docs, not
// the synthetic chain above it.
func (a *Actor) executeSnapshot(job snapshotJob) TreeNode {
	idx, ok := a.tree.NodeIndexForPath(strings.TrimPrefix(a.config.Root, "/"), true)
	if !ok {
		idx = a.tree.Root()
	}
	return a.buildTreeNode(idx, job.maxDepth, 0)
}

func (a *Actor) buildTreeNode(idx slab.Index, maxDepth, depth int) TreeNode {
	node, ok := a.tree.GetNode(idx)
	if !ok {
		return TreeNode{}
	}
	out := TreeNode{Name: node.Name(), IsDir: node.IsDir()}
	if maxDepth > 0 && depth >= maxDepth {
		return out
	}
	children := append([]slab.Index(nil), node.Children...)
	out.Children = make([]TreeNode, 0, len(children))
	for _, c := range children {
		out.Children = append(out.Children, a.buildTreeNode(c, maxDepth, depth+1))
	}
	return out
}
