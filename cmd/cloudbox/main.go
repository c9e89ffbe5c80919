// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/cloudbox/pkg/cmd"
)

//	@title			CloudBox API
//	@version		1.0
//	@description	CloudBox 是一个多用户文件存储服务，提供上传下载、文件夹、回收站、分享链接与配额管理。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
