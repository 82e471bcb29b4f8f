// internal/models/roles.go

package models

// UserRole представляє роль користувача в системі
type UserRole string

// Константи для ролей
const (
	RoleUser       UserRole = "USER"
	RoleModerator  UserRole = "MODERATOR"
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

var roleLevels = map[UserRole]int{
	RoleUser:       0,
	RoleModerator:  1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// IsValid перевіряє чи роль валідна
func (r UserRole) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// IsHigherOrEqual перевіряє чи поточна роль вища або рівна цільовій
func (r UserRole) IsHigherOrEqual(target UserRole) bool {
	current, ok1 := roleLevels[r]
	required, ok2 := roleLevels[target]
	if !ok1 || !ok2 {
		return false
	}
	return current >= required
}

// Адмінські операції над уведомленнями (ручний запуск циклу, статистика)
func (r UserRole) CanManageAlerts() bool {
	return r.IsHigherOrEqual(RoleAdmin)
}

func (r UserRole) String() string {
	return string(r)
}
