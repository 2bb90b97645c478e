package value

import "strings"

// Actor — кто выполняет операцию над сделкой (попадает в историю статусов и CreatedBy допов).
type Actor string

// SystemActor используется фоновыми задачами.
const SystemActor Actor = "system"

func (a Actor) String() string {
	return string(a)
}

func (a Actor) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}
