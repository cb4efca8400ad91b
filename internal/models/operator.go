package models

// Operator is an account allowed to call mutating CI endpoints.
type Operator struct {
	Username string `json:"username" bson:"username"`
	Password string `json:"password,omitempty" bson:"password"`
}
