// Package aggregate derives per-viewer engagement fields for posts from the like and
// comment rows joined to them. It performs no I/O.
package aggregate

import "pulse/internal/models"

// Annotate returns copies of posts with LikeCount, CommentCount and IsLiked set for viewerID.
//
// A post whose Likes or Comments were not joined counts as having none. Rows whose
// PostID names a different post are skipped and reported as MALFORMED_REFERENCE errors;
// they never fail the pass. Rows with an empty PostID are trusted to belong to the post
// they were joined to.
func Annotate(posts []*models.Post, viewerID string) ([]*models.Post, []error) {
	out := make([]*models.Post, 0, len(posts))
	var skipped []error

	for _, p := range posts {
		if p == nil {
			continue
		}
		annotated := *p
		annotated.LikeCount = 0
		annotated.CommentCount = 0
		annotated.IsLiked = false

		for i := range p.Likes {
			like := &p.Likes[i]
			if !belongs(like.PostID, p.ID) {
				skipped = append(skipped, models.NewMalformedReference("like", like.ID, p.ID))
				continue
			}
			annotated.LikeCount++
			if viewerID != "" && like.UserID == viewerID {
				annotated.IsLiked = true
			}
		}

		for i := range p.Comments {
			comment := &p.Comments[i]
			if !belongs(comment.PostID, p.ID) {
				skipped = append(skipped, models.NewMalformedReference("comment", comment.ID, p.ID))
				continue
			}
			annotated.CommentCount++
		}

		out = append(out, &annotated)
	}

	return out, skipped
}

// AnnotateOne is Annotate for a single post.
func AnnotateOne(post *models.Post, viewerID string) (*models.Post, []error) {
	if post == nil {
		return nil, nil
	}
	out, skipped := Annotate([]*models.Post{post}, viewerID)
	return out[0], skipped
}

func belongs(rowPostID, postID string) bool {
	return rowPostID == "" || rowPostID == postID
}
