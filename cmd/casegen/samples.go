package main

import (
	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

// sampleStory is processed by "casegen run" when no story is given.
func sampleStory() domain.UserStory {
	return domain.UserStory{
		Title:       "User Login Functionality",
		Description: "As a user, I want to log into the system using my email and password so that I can access my account.",
		AcceptanceCriteria: []string{
			"User can enter email and password",
			"System validates credentials",
			"User is redirected to dashboard on successful login",
			"Error message is shown for invalid credentials",
			"Account is locked after 3 failed attempts",
		},
	}
}

// sampleBatch is processed by "casegen batch" when no file is given.
func sampleBatch() []pipeline.BatchEntry {
	return []pipeline.BatchEntry{
		{
			Story: domain.UserStory{
				Title:       "User Registration",
				Description: "As a new user, I want to create an account",
				AcceptanceCriteria: []string{
					"User can enter registration details",
					"Email validation is performed",
					"Confirmation email is sent",
				},
			},
			ParentKey: "PROJ-123",
		},
		{
			Story: domain.UserStory{
				Title:       "Password Reset",
				Description: "As a user, I want to reset my forgotten password",
				AcceptanceCriteria: []string{
					"User can request password reset",
					"Reset link is sent via email",
					"User can set new password",
				},
			},
		},
	}
}
