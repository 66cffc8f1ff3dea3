// File: internal/common/roles.go
package common

// User roles. Departmental technicians hold the moderator role; platform
// operators hold staff.
const (
	RoleProducer  = "producer"
	RoleBuyer     = "buyer"
	RoleModerator = "moderator"
	RoleStaff     = "staff"
)
