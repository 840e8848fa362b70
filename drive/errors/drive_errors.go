package errors

import "fmt"

type InvalidMotorError struct {
	ID int
}

func (err InvalidMotorError) Error() string {
	return fmt.Sprintf("no such motor %d", err.ID)
}

type ConfigGroupError struct {
	Group string
}

func (err ConfigGroupError) Error() string {
	if len(err.Group) == 0 {
		err.Group = "UNKOWN"
	}

	return fmt.Sprintf("config group not found: %s", err.Group)
}

type ConfigVersionError struct {
	Version    string
	Constraint string
}

func (err ConfigVersionError) Error() string {
	return fmt.Sprintf("unable to use config version %s - require %s", err.Version, err.Constraint)
}
