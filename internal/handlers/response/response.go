// Package response provides the {success, data, error} envelope every
// endpoint answers with.
package response

import "github.com/gin-gonic/gin"

const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeContestNotFound    = "CONTEST_NOT_FOUND"
	CodeQuestionNotFound   = "QUESTION_NOT_FOUND"
	CodeProblemNotFound    = "PROBLEM_NOT_FOUND"
	CodeSubmissionNotFound = "SUBMISSION_NOT_FOUND"
	CodeContestNotActive   = "CONTEST_NOT_ACTIVE"
	CodeAlreadySubmitted   = "ALREADY_SUBMITTED"
	CodeInternalError      = "INTERNAL_SERVER_ERROR"
)

func OK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
		"error":   nil,
	})
}

func Error(c *gin.Context, status int, code string) {
	c.JSON(status, gin.H{
		"success": false,
		"data":    nil,
		"error":   code,
	})
}
