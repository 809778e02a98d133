package userstore

// User is the record returned to callers of a Store.
type User struct {
	ID    int64  `json:"id" dynamodbav:"id"`
	Email string `json:"email" dynamodbav:"email"`
	Name  string `json:"name" dynamodbav:"name"`
}

type userEntity struct {
	ID    int64  `gorm:"column:id;primaryKey"`
	Email string `gorm:"column:email"`
	Name  string `gorm:"column:name"`
}

func (userEntity) TableName() string {
	return "users"
}

func (e userEntity) toDomain() User {
	return User(e)
}
