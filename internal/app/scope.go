package app

import (
	"sort"

	"docuchat/internal/model"
)

// FolderACL exposes the three visibility sources the resolver combines:
// org-wide (admins), team membership, and explicit per-user grants.
type FolderACL interface {
	ListIDsByOrgID(orgID uint) ([]uint, error)
	ListIDsByTeam(orgID, teamID uint) ([]uint, error)
	ListGrantedIDsByUserID(userID uint) ([]uint, error)
}

// ScopeResolver computes which folders a chat turn may search. No chunk
// outside the resolved scope may ever reach the synthesizer's prompt,
// so every retrieval path goes through Resolve first.
type ScopeResolver struct {
	folders FolderACL
}

func NewScopeResolver(folders FolderACL) *ScopeResolver {
	return &ScopeResolver{folders: folders}
}

// AuthorizedFolderIDs returns every folder the user may see, sorted and
// deduplicated. Admins see the whole org; members see their team's
// folders plus any individually granted ones.
func (r *ScopeResolver) AuthorizedFolderIDs(user *model.User) ([]uint, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}

	if user.IsAdmin() {
		ids, err := r.folders.ListIDsByOrgID(user.OrgID)
		if err != nil {
			return nil, err
		}
		return sortedUnique(ids), nil
	}

	teamIDs, err := r.folders.ListIDsByTeam(user.OrgID, user.TeamID)
	if err != nil {
		return nil, err
	}
	grantedIDs, err := r.folders.ListGrantedIDsByUserID(user.ID)
	if err != nil {
		return nil, err
	}
	return sortedUnique(append(teamIDs, grantedIDs...)), nil
}

// Resolve intersects the caller-requested folders with the user's
// authorized set. An empty request means the full authorized set.
// Requested folders the user cannot see are dropped silently rather
// than rejected, so stale or shared links keep working.
func (r *ScopeResolver) Resolve(user *model.User, requested []uint) ([]uint, error) {
	authorized, err := r.AuthorizedFolderIDs(user)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return authorized, nil
	}

	allowed := make(map[uint]bool, len(authorized))
	for _, id := range authorized {
		allowed[id] = true
	}

	var scoped []uint
	for _, id := range requested {
		if allowed[id] {
			scoped = append(scoped, id)
		}
	}
	return sortedUnique(scoped), nil
}

func sortedUnique(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
