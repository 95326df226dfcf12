package model

// DeviceConfiguration is the identity a device persists across restarts.
// DeviceID names the physical device and survives restaurant changes.
// DeviceRoleID and DeviceRoleName are set together or not at all; a missing
// role routes the device back through role selection.
type DeviceConfiguration struct {
	DeviceID        string `json:"deviceId"`
	RestaurantID    string `json:"restaurantId"`
	RestaurantEmail string `json:"restaurantEmail"`
	DeviceRoleID    string `json:"deviceRoleId,omitempty"`
	DeviceRoleName  string `json:"deviceRoleName,omitempty"`
}

// HasRole reports whether a device role has been selected.
func (c DeviceConfiguration) HasRole() bool {
	return c.DeviceRoleID != ""
}
