package models

import "time"

// PushEvent is the normalised view of a push notification the runner acts on.
type PushEvent struct {
	DeliveryID string    `json:"deliveryId" bson:"deliveryId"`
	Ref        string    `json:"ref" bson:"ref"`
	SHA        string    `json:"sha" bson:"sha"`
	Repository string    `json:"repository" bson:"repository"`
	CloneURL   string    `json:"cloneUrl" bson:"cloneUrl"`
	Deleted    bool      `json:"deleted" bson:"deleted"`
	HeadCommit CommitRef `json:"headCommit" bson:"headCommit"`
}

// CommitRef holds the head commit metadata carried by a push.
type CommitRef struct {
	Message   string       `json:"message" bson:"message"`
	Author    CommitAuthor `json:"author" bson:"author"`
	Timestamp time.Time    `json:"timestamp" bson:"timestamp"`
}

// CommitAuthor holds the commit author metadata recorded from hooks.
type CommitAuthor struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
}
