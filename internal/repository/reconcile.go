package repository

import (
	"sort"

	"github.com/google/uuid"

	"github.com/formr/engine/internal/models"
)

// controlPlan is the set of row changes that turns a stored control set into
// the submitted one. Inserts are ordered parents first and deletes children
// first so self-referencing foreign keys hold after every statement.
type controlPlan struct {
	inserts []models.FormControl
	updates []models.FormControl
	deletes []models.FormControl
}

// planControls matches incoming controls to existing ones by id. Matched
// controls keep their stored identity and take every mutable field from the
// submission. Unmatched submissions are new and always get a fresh id; parent
// references to a submitted id follow it. Stored controls missing from the
// submission are removed.
func planControls(templateID uuid.UUID, existing, incoming []models.FormControl, newID func() uuid.UUID) controlPlan {
	stored := make(map[uuid.UUID]models.FormControl, len(existing))
	for _, c := range existing {
		stored[c.ID] = c
	}

	var plan controlPlan
	kept := make(map[uuid.UUID]bool, len(incoming))
	minted := make(map[uuid.UUID]uuid.UUID)
	for _, in := range incoming {
		if cur, ok := stored[in.ID]; ok && in.ID != uuid.Nil {
			cur.TemplateID = templateID
			cur.Type = in.Type
			cur.Label = in.Label
			cur.Placeholder = in.Placeholder
			cur.DefaultValue = in.DefaultValue
			cur.IsRequired = in.IsRequired
			cur.ValidationRules = in.ValidationRules
			cur.Position = in.Position
			cur.Properties = in.Properties
			cur.ParentControlID = in.ParentControlID
			cur.Order = in.Order
			plan.updates = append(plan.updates, cur)
			kept[in.ID] = true
			continue
		}
		fresh := newID()
		if in.ID != uuid.Nil {
			minted[in.ID] = fresh
		}
		in.ID = fresh
		in.TemplateID = templateID
		plan.inserts = append(plan.inserts, in)
	}

	if len(minted) > 0 {
		relink(plan.inserts, minted)
		relink(plan.updates, minted)
	}

	for _, c := range existing {
		if !kept[c.ID] {
			plan.deletes = append(plan.deletes, c)
		}
	}

	plan.inserts = parentsFirst(plan.inserts)
	plan.deletes = childrenFirst(plan.deletes)
	return plan
}

// relink points parent references at the ids they were replaced with.
func relink(controls []models.FormControl, ids map[uuid.UUID]uuid.UUID) {
	for i := range controls {
		if p := controls[i].ParentControlID; p != nil {
			if mapped, ok := ids[*p]; ok {
				controls[i].ParentControlID = &mapped
			}
		}
	}
}

// remapControlIDs gives every control a fresh id under templateID and rewrites
// parent references that point at submitted ids. The result is parents first.
func remapControlIDs(controls []models.FormControl, templateID uuid.UUID, newID func() uuid.UUID) []models.FormControl {
	ids := make(map[uuid.UUID]uuid.UUID, len(controls))
	out := make([]models.FormControl, len(controls))
	for i, c := range controls {
		fresh := newID()
		if c.ID != uuid.Nil {
			ids[c.ID] = fresh
		}
		c.ID = fresh
		c.TemplateID = templateID
		out[i] = c
	}
	relink(out, ids)
	return parentsFirst(out)
}

// depths returns each control's distance from a root, counting only parents
// present in the same slice.
func depths(controls []models.FormControl) []int {
	parent := make(map[uuid.UUID]uuid.UUID, len(controls))
	for _, c := range controls {
		if c.ParentControlID != nil {
			parent[c.ID] = *c.ParentControlID
		}
	}
	present := make(map[uuid.UUID]bool, len(controls))
	for _, c := range controls {
		present[c.ID] = true
	}

	out := make([]int, len(controls))
	for i, c := range controls {
		d, cur := 0, c.ID
		for d < len(controls) {
			p, ok := parent[cur]
			if !ok || !present[p] || p == cur {
				break
			}
			d++
			cur = p
		}
		out[i] = d
	}
	return out
}

func parentsFirst(controls []models.FormControl) []models.FormControl {
	return sortByDepth(controls, false)
}

func childrenFirst(controls []models.FormControl) []models.FormControl {
	return sortByDepth(controls, true)
}

func sortByDepth(controls []models.FormControl, deepestFirst bool) []models.FormControl {
	if len(controls) < 2 {
		return controls
	}
	d := depths(controls)
	idx := make([]int, len(controls))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if deepestFirst {
			return d[idx[a]] > d[idx[b]]
		}
		return d[idx[a]] < d[idx[b]]
	})
	out := make([]models.FormControl, len(controls))
	for i, j := range idx {
		out[i] = controls[j]
	}
	return out
}
