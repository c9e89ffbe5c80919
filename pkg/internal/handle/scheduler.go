package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/cloudbox/pkg/context"
	"github.com/yeisme/cloudbox/pkg/internal/errs"
	"github.com/yeisme/cloudbox/pkg/scheduler"
)

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	定时任务列表
//	@Tags		管理
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	map[string][]scheduler.JobInfo
//	@Router		/api/admin/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		c.JSON(http.StatusOK, gin.H{"jobs": []scheduler.JobInfo{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerRunJob 立即执行一次任务.
//
//	@Summary	立即执行任务
//	@Tags		管理
//	@Produce	json
//	@Security	BearerAuth
//	@Param		name	path		string	true	"任务名"
//	@Success	202		{object}	MessageResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/admin/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		fail(c, errs.NotFound("scheduler is not running"))
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			fail(c, errs.NotFound("job %s not found", name))
			return
		}

		fail(c, err)

		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "job " + name + " triggered"})
}
