package handlers_test

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminEndpoints(t *testing.T) {
	s := newServer(t)
	alice := s.signup(t, "alice")
	admin := s.signup(t, "admin")

	res := s.do(t, "POST", "/api/reports", alice.access, reportFields("Hole 1"))
	require.Equal(t, fiber.StatusCreated, res.status)
	bare := res.body["report"].(map[string]interface{})["id"].(string)

	res = s.upload(t, alice.access, map[string]string{
		"name": "Hole 2", "description": "Crater near the school", "address": "3 School Road",
	}, "hole.png", pngPhoto(t))
	require.Equal(t, fiber.StatusCreated, res.status)
	withPhoto := res.body["report"].(map[string]interface{})["id"].(string)

	res = s.do(t, "GET", "/api/admin/reports", alice.access, nil)
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = s.do(t, "GET", "/api/admin/reports", admin.access, nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.EqualValues(t, 2, res.body["count"])
	assert.EqualValues(t, 20, res.body["limit"])

	res = s.do(t, "GET", "/api/admin/reports?q=school&limit=500", admin.access, nil)
	assert.EqualValues(t, 1, res.body["count"])
	assert.EqualValues(t, 100, res.body["limit"])
	first := res.body["reports"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, withPhoto, first["id"])
	assert.Equal(t, "alice", first["username"])

	res = s.do(t, "GET", "/api/admin/reports?severity=3", admin.access, nil)
	assert.EqualValues(t, 1, res.body["count"])

	res = s.do(t, "GET", "/api/admin/reports?severity=9", admin.access, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(t, "GET", "/api/admin/reports?status=closed", admin.access, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(t, "GET", "/api/admin/reports?created_after=yesterday", admin.access, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(t, "GET", "/api/admin/reports/"+bare, admin.access, nil)
	assert.Equal(t, fiber.StatusOK, res.status)

	status := func(id, to string) (int, map[string]interface{}) {
		r := s.do(t, "PUT", "/api/admin/reports/"+id+"/status", admin.access, map[string]string{"status": to, "admin_note": "checked"})
		return r.status, r.body
	}

	code, _ := status(bare, "pending")
	assert.Equal(t, fiber.StatusConflict, code)
	code, _ = status(bare, "resolved")
	assert.Equal(t, fiber.StatusConflict, code)
	code, _ = status(bare, "closed")
	assert.Equal(t, fiber.StatusBadRequest, code)
	code, body := status(bare, "in_progress")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "checked", body["report"].(map[string]interface{})["admin_note"])
	code, _ = status(bare, "resolved")
	assert.Equal(t, fiber.StatusOK, code)
	code, body = status(bare, "rejected")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "Report is already closed", body["message"])

	res = s.do(t, "PUT", "/api/admin/reports/"+bare+"/status", admin.access, map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = s.do(t, "POST", "/api/admin/reports/"+bare+"/analyze", admin.access, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Report has no image", res.body["message"])

	res = s.do(t, "POST", "/api/admin/reports/"+withPhoto+"/analyze", admin.access, nil)
	require.Equal(t, fiber.StatusAccepted, res.status)
	jobID := res.body["job_id"].(string)
	assert.Equal(t, "pending", res.body["status"])

	res = s.do(t, "GET", "/api/admin/jobs/"+jobID, admin.access, nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, "analyze_report_image", res.body["type"])

	res = s.do(t, "GET", "/api/admin/jobs/missing", admin.access, nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)

	res = s.do(t, "GET", "/api/admin/stats", admin.access, nil)
	assert.Equal(t, fiber.StatusOK, res.status)
	reports := res.body["reports"].(map[string]interface{})
	assert.EqualValues(t, 2, reports["total"])
	assert.EqualValues(t, 1, reports["by_status"].(map[string]interface{})["resolved"])
	assert.EqualValues(t, 1, res.body["queued"])
	assert.EqualValues(t, 0, res.body["delayed"])
}
