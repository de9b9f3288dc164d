package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"question:view",
		"quiz:play",
		"quiz:review-own",
		"exam:start",
	},
	"admin": {
		"*", // everything, including question:manage, users:manage, quiz:review-all
	},
}
